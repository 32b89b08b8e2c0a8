package eventloop

import "fyne.io/fyne/v2"

// FyneThread runs functions on the fyne main goroutine, which owns every
// window of the application.
type FyneThread struct{}

func (FyneThread) Do(fn func()) { fyne.DoAndWait(fn) }
