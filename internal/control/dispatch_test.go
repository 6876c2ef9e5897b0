package control

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	layers   []string
	current  int
	changeErr error

	fakeKeyCalls []struct {
		name   string
		action FakeKeyAction
	}

	reloadPath string
	reloadNextCalls, reloadPrevCalls int
	reloadNumErr error

	mouseX, mouseY int
	mouseErr       error

	subCh chan Notification
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{layers: []string{"base", "nav"}, subCh: make(chan Notification, 8)}
}

func (f *fakeBackend) LayerNames() []string   { return f.layers }
func (f *fakeBackend) CurrentLayerName() string { return f.layers[f.current] }
func (f *fakeBackend) CurrentLayerIndex() int   { return f.current }

func (f *fakeBackend) ChangeLayer(name string) error {
	if f.changeErr != nil {
		return f.changeErr
	}
	for i, n := range f.layers {
		if n == name {
			f.current = i
			return nil
		}
	}
	return errors.New("unknown layer")
}

func (f *fakeBackend) ActOnFakeKey(name string, action FakeKeyAction) error {
	f.fakeKeyCalls = append(f.fakeKeyCalls, struct {
		name   string
		action FakeKeyAction
	}{name, action})
	return nil
}

func (f *fakeBackend) Reload(path string) { f.reloadPath = path }
func (f *fakeBackend) ReloadNext()        { f.reloadNextCalls++ }
func (f *fakeBackend) ReloadPrev()        { f.reloadPrevCalls++ }
func (f *fakeBackend) ReloadNum(n int) error {
	if f.reloadNumErr != nil {
		return f.reloadNumErr
	}
	f.current = n
	return nil
}

func (f *fakeBackend) SetMouse(x, y int) error {
	f.mouseX, f.mouseY = x, y
	return f.mouseErr
}

func (f *fakeBackend) Subscribe() (<-chan Notification, func()) {
	return f.subCh, func() { close(f.subCh) }
}

func TestApplyRequestChangeLayer(t *testing.T) {
	b := newFakeBackend()
	resp := applyRequest(b, requestEnvelope{ChangeLayer: &ChangeLayerRequest{New: "nav"}})
	require.Equal(t, 1, b.current)
	require.NotNil(t, resp.LayerChange)
	require.Equal(t, "nav", resp.LayerChange.New)
}

func TestApplyRequestChangeLayerUnknownReturnsError(t *testing.T) {
	b := newFakeBackend()
	resp := applyRequest(b, requestEnvelope{ChangeLayer: &ChangeLayerRequest{New: "ghost"}})
	require.NotNil(t, resp.Error)
	require.Nil(t, resp.LayerChange)
}

func TestApplyRequestActOnFakeKey(t *testing.T) {
	b := newFakeBackend()
	resp := applyRequest(b, requestEnvelope{ActOnFakeKey: &ActOnFakeKeyRequest{Name: "leader", Action: FakeKeyTap}})
	require.Nil(t, resp.Error)
	require.Len(t, b.fakeKeyCalls, 1)
	require.Equal(t, "leader", b.fakeKeyCalls[0].name)
	require.Equal(t, FakeKeyTap, b.fakeKeyCalls[0].action)
}

func TestApplyRequestLayerNames(t *testing.T) {
	b := newFakeBackend()
	resp := applyRequest(b, requestEnvelope{RequestLayerNames: &struct{}{}})
	require.Equal(t, []string{"base", "nav"}, resp.LayerNames.Names)
}

func TestApplyRequestCurrentLayerInfo(t *testing.T) {
	b := newFakeBackend()
	b.current = 1
	resp := applyRequest(b, requestEnvelope{RequestCurrentLayerInfo: &struct{}{}})
	require.Equal(t, "nav", resp.CurrentLayerInfo.Name)
	require.Equal(t, 1, resp.CurrentLayerInfo.Index)
}

func TestApplyRequestReloadVariants(t *testing.T) {
	b := newFakeBackend()

	applyRequest(b, requestEnvelope{Reload: &struct{}{}})
	require.Equal(t, "", b.reloadPath)

	applyRequest(b, requestEnvelope{ReloadFile: &ReloadFileRequest{Path: "/tmp/x.kbd"}})
	require.Equal(t, "/tmp/x.kbd", b.reloadPath)

	applyRequest(b, requestEnvelope{ReloadNext: &struct{}{}})
	require.Equal(t, 1, b.reloadNextCalls)

	applyRequest(b, requestEnvelope{ReloadPrev: &struct{}{}})
	require.Equal(t, 1, b.reloadPrevCalls)

	resp := applyRequest(b, requestEnvelope{ReloadNum: &ReloadNumRequest{N: 1}})
	require.Nil(t, resp.Error)
	require.Equal(t, 1, b.current)
}

func TestApplyRequestSetMouse(t *testing.T) {
	b := newFakeBackend()
	resp := applyRequest(b, requestEnvelope{SetMouse: &SetMouseRequest{X: 10, Y: 20}})
	require.Nil(t, resp.Error)
	require.Equal(t, 10, b.mouseX)
	require.Equal(t, 20, b.mouseY)
}

func TestApplyRequestEmptyEnvelopeIsError(t *testing.T) {
	b := newFakeBackend()
	resp := applyRequest(b, requestEnvelope{})
	require.NotNil(t, resp.Error)
}
