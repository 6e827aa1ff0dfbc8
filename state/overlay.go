package state

// FooterStyle picks how the view lays out footer buttons.
type FooterStyle string

const (
	FooterDefault FooterStyle = "default"
	FooterStacked FooterStyle = "stacked"
)

// Button is a view-neutral action. Exactly one of CallbackData and URL is set.
type Button struct {
	Text         string
	CallbackData string
	URL          string
}

// Overlay is the single drawer/modal. Opening replaces it entirely; there is no stacking.
type Overlay struct {
	Open        bool
	Title       string
	Body        string
	Footer      [][]Button
	FooterStyle FooterStyle
}

// ClosedOverlay is the empty default restored on close.
func ClosedOverlay() Overlay {
	return Overlay{FooterStyle: FooterDefault}
}

// Row is shorthand for one footer row.
func Row(buttons ...Button) []Button { return buttons }

func ActionButton(text, data string) Button { return Button{Text: text, CallbackData: data} }

func LinkButton(text, url string) Button { return Button{Text: text, URL: url} }
