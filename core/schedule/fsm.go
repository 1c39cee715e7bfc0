package schedule

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/evlife/evcore/core/model"
)

// Session lifecycle events. scheduled -> active -> completed, with
// scheduled -> cancelled as the only other transition.
const (
	eventActivate = "activate"
	eventComplete = "complete"
	eventCancel   = "cancel"
)

func newSessionFSM(initial model.SessionStatus) *fsm.FSM {
	return fsm.NewFSM(string(initial), fsm.Events{
		{Name: eventActivate, Src: []string{string(model.SessionScheduled)}, Dst: string(model.SessionActive)},
		{Name: eventComplete, Src: []string{string(model.SessionActive)}, Dst: string(model.SessionCompleted)},
		{Name: eventCancel, Src: []string{string(model.SessionScheduled)}, Dst: string(model.SessionCancelled)},
	}, nil)
}

// fire attempts the event and maps fsm rejections onto the domain error.
func fire(f *fsm.FSM, sessionID, event string, to model.SessionStatus) error {
	from := model.SessionStatus(f.Current())
	if err := f.Event(context.Background(), event); err != nil {
		return model.InvalidTransitionError{SessionID: sessionID, From: from, To: to}
	}
	return nil
}
