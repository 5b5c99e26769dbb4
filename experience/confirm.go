package experience

// ConfirmDialog is a yes/no prompt gating an action.
type ConfirmDialog struct {
	Title        string
	Message      string
	ConfirmLabel string
	CancelLabel  string
}

// DeletePointDialog gates removal of a persisted point.
func DeletePointDialog() ConfirmDialog {
	return ConfirmDialog{
		Title:        "Delete Point",
		Message:      "Are you sure you want to delete this point?",
		ConfirmLabel: "Delete",
		CancelLabel:  "Cancel",
	}
}

// DiscardPointDialog gates throwing away an unsaved draft.
func DiscardPointDialog() ConfirmDialog {
	return ConfirmDialog{
		Title:        "Discard Point",
		Message:      "Are you sure you want to discard this point?",
		ConfirmLabel: "Discard",
		CancelLabel:  "Cancel",
	}
}

// Confirmer holds at most one open dialog and its action.
type Confirmer struct {
	dialog *ConfirmDialog
	action func()
}

// Ask opens d, replacing any dialog already open.
func (c *Confirmer) Ask(d ConfirmDialog, action func()) {
	c.dialog = &d
	c.action = action
}

func (c *Confirmer) Current() (ConfirmDialog, bool) {
	if c.dialog == nil {
		return ConfirmDialog{}, false
	}
	return *c.dialog, true
}

// Confirm closes the dialog and runs its action.
func (c *Confirmer) Confirm() bool {
	if c.dialog == nil {
		return false
	}
	action := c.action
	c.dialog, c.action = nil, nil
	if action != nil {
		action()
	}
	return true
}

// Cancel closes the dialog without running the action.
func (c *Confirmer) Cancel() bool {
	if c.dialog == nil {
		return false
	}
	c.dialog, c.action = nil, nil
	return true
}
