package dialogue

import (
	"context"
	"fmt"

	"github.com/suPer8Hu/storyvoice/internal/reminder"
)

func (m *Machine) scheduleReminder(ctx context.Context, t *Turn) *ResponseEnvelope {
	switch t.answer() {
	case answerYes:
		if !t.Env.credentials().CanRemind() {
			return askPermission(msgNeedPermission)
		}
		attrs := t.Attrs
		attrs.Stage = StageReminderTime
		return say(msgAskWhen, attrs, false)
	case answerNo:
		return say(msgReminderNo, Attributes{}, true)
	default:
		return say(msgReminderRetry, t.Attrs, false)
	}
}

// reminderTime always goes through the scheduler, which records the reminder
// locally before any platform call. Missing credentials surface as its outcome.
func (m *Machine) reminderTime(ctx context.Context, t *Turn) *ResponseEnvelope {
	expr := t.Env.slotValues()
	if expr == "" {
		expr = t.Env.transcript()
	}

	res := m.scheduler.Schedule(ctx, reminder.Request{
		Pseudonym:   t.Attrs.Pseudonym,
		SessionID:   t.Attrs.SessionID,
		When:        reminder.ParseWhen(expr, m.cfg.ReminderDefaultHour),
		Credentials: t.Env.credentials(),
	})
	switch res.Outcome {
	case reminder.Created:
		return say(fmt.Sprintf(msgReminderSet, res.At.Format("2006-01-02"), res.At.Format("15:04")), Attributes{}, true)
	case reminder.PermissionRequired:
		return askPermission(msgPermissionAgain)
	case reminder.SavedLocally:
		return say(msgReminderLocal, Attributes{}, true)
	default:
		return say(msgReminderFailed, Attributes{}, true)
	}
}
