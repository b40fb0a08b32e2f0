package game

// SubmitFunc submits a command on behalf of the bound seat.
type SubmitFunc func(cmd Command) error

// Controller is the capability shared by human sessions and the AI: it is
// bound to a seat through Bind and receives every notification for that seat.
// Receive is called with the match delivery lock held and must not block.
type Controller interface {
	Bind(submit SubmitFunc)
	Receive(n Notification)
}

// ControllerFunc adapts a receive function into a Controller that ignores Bind.
type ControllerFunc func(n Notification)

func (f ControllerFunc) Bind(SubmitFunc) {}

func (f ControllerFunc) Receive(n Notification) { f(n) }
