package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHubBroadcastsToAllRegisteredListeners(t *testing.T) {
	b := newFakeBackend()
	h := newHub(b, "", nil)
	h.run()
	defer h.close()

	ch1, dereg1 := h.register()
	defer dereg1()
	ch2, dereg2 := h.register()
	defer dereg2()

	b.subCh <- Notification{Kind: NotifyLayerChange, LayerName: "nav"}

	for _, ch := range []<-chan responseEnvelope{ch1, ch2} {
		select {
		case msg := <-ch:
			require.NotNil(t, msg.LayerChange)
			require.Equal(t, "nav", msg.LayerChange.New)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast")
		}
	}
}

func TestHubDeregisterStopsDelivery(t *testing.T) {
	b := newFakeBackend()
	h := newHub(b, "", nil)
	h.run()
	defer h.close()

	ch, dereg := h.register()
	dereg()

	b.subCh <- Notification{Kind: NotifyLayerChange, LayerName: "nav"}

	select {
	case _, ok := <-ch:
		require.False(t, ok, "expected no message after deregistering, channel must stay unread")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubBroadcastDropsOnFullListenerRatherThanBlocking(t *testing.T) {
	b := newFakeBackend()
	h := newHub(b, "", nil)
	h.run()
	defer h.close()

	ch, dereg := h.register()
	defer dereg()

	for i := 0; i < 64; i++ {
		b.subCh <- Notification{Kind: NotifyLayerChange, LayerName: "nav"}
	}

	select {
	case msg := <-ch:
		require.NotNil(t, msg.LayerChange)
	case <-time.After(time.Second):
		t.Fatal("hub appears to have blocked instead of dropping for a full listener")
	}
}

func TestNotificationToMessageTranslatesKeyEvent(t *testing.T) {
	msg := notificationToMessage(Notification{Kind: NotifyKeyEvent, Key: "KC_A", Action: "Press", KeyKind: KeyEventInput})
	require.NotNil(t, msg.KeyEvent)
	require.Equal(t, "KC_A", msg.KeyEvent.Key)
	require.Equal(t, "Press", msg.KeyEvent.Action)
	require.Equal(t, KeyEventInput, msg.KeyEvent.Kind)
}
