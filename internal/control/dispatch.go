package control

import "fmt"

// applyRequest converts one already-authenticated requestEnvelope into a
// Backend call and the responseEnvelope it produces. Authentication itself
// is the caller's job (tcp.go/udp.go), since TCP ties it to the connection
// and UDP ties it to a session-id echoed on every packet.
func applyRequest(backend Backend, req requestEnvelope) responseEnvelope {
	switch {
	case req.ChangeLayer != nil:
		if err := backend.ChangeLayer(req.ChangeLayer.New); err != nil {
			return errorResponse(err)
		}
		return responseEnvelope{LayerChange: &LayerChangeMessage{New: req.ChangeLayer.New}}

	case req.ActOnFakeKey != nil:
		if err := backend.ActOnFakeKey(req.ActOnFakeKey.Name, req.ActOnFakeKey.Action); err != nil {
			return errorResponse(err)
		}
		return responseEnvelope{}

	case req.RequestLayerNames != nil:
		return responseEnvelope{LayerNames: &LayerNamesMessage{Names: backend.LayerNames()}}

	case req.RequestCurrentLayerName != nil:
		return responseEnvelope{CurrentLayerName: &CurrentLayerNameMessage{Name: backend.CurrentLayerName()}}

	case req.RequestCurrentLayerInfo != nil:
		return responseEnvelope{CurrentLayerInfo: &CurrentLayerInfoMessage{
			Name:  backend.CurrentLayerName(),
			Index: backend.CurrentLayerIndex(),
		}}

	case req.Reload != nil:
		backend.Reload("")
		return responseEnvelope{}

	case req.ReloadNext != nil:
		backend.ReloadNext()
		return responseEnvelope{}

	case req.ReloadPrev != nil:
		backend.ReloadPrev()
		return responseEnvelope{}

	case req.ReloadNum != nil:
		if err := backend.ReloadNum(req.ReloadNum.N); err != nil {
			return errorResponse(err)
		}
		return responseEnvelope{}

	case req.ReloadFile != nil:
		backend.Reload(req.ReloadFile.Path)
		return responseEnvelope{}

	case req.SetMouse != nil:
		if err := backend.SetMouse(req.SetMouse.X, req.SetMouse.Y); err != nil {
			return errorResponse(err)
		}
		return responseEnvelope{}

	default:
		return errorResponse(fmt.Errorf("control: empty or unrecognized request"))
	}
}

func errorResponse(err error) responseEnvelope {
	return responseEnvelope{Error: &ErrorMessage{Msg: err.Error()}}
}
