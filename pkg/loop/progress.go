package loop

// Reporter receives progress from long running work.
type Reporter interface {
	SetTitle(title string)
	Update(percent int)
}

type discard struct{}

func (discard) SetTitle(string) {}
func (discard) Update(int)      {}

// Discard is a Reporter that drops everything.
var Discard Reporter = discard{}

// Percent converts a position within n iterations to a rounded percentage.
func Percent(next, n int) int {
	if n <= 0 {
		return 100
	}
	return int((200*int64(next) + int64(n)) / (2 * int64(n)))
}
