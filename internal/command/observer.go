package command

// Observer is told how invocations end. Silent rejections are never
// reported. Implementations must be safe for concurrent use.
type Observer interface {
	// OnTerminated is called when admission rejected an invocation with a
	// visible message.
	OnTerminated(inv *Invocation, message string)
	OnCompleted(inv *Invocation)
	// OnException is called when the body returned an error or panicked.
	OnException(inv *Invocation, err error)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) OnTerminated(*Invocation, string) {}
func (NopObserver) OnCompleted(*Invocation)          {}
func (NopObserver) OnException(*Invocation, error)   {}

// Observers fans out to every observer in order.
type Observers []Observer

func (o Observers) OnTerminated(inv *Invocation, message string) {
	for _, ob := range o {
		ob.OnTerminated(inv, message)
	}
}

func (o Observers) OnCompleted(inv *Invocation) {
	for _, ob := range o {
		ob.OnCompleted(inv)
	}
}

func (o Observers) OnException(inv *Invocation, err error) {
	for _, ob := range o {
		ob.OnException(inv, err)
	}
}
