package presenter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/replypilot/replypilot/internal/hostpage"
)

const (
	overlayAttr      = "data-replypilot-overlay"
	notificationAttr = "data-replypilot-notification"

	// NotificationDisplay is how long the copy confirmation stays up.
	NotificationDisplay = 3 * time.Second

	// maxErrorLength bounds the user-visible error message.
	maxErrorLength = 200
)

// Presenter renders the suggestion overlay and performs the apply action.
// At most one overlay is visible; presenting a new one replaces it.
type Presenter struct {
	page      *hostpage.Page
	selectors hostpage.Selectors
	clip      Clipboard

	mu           sync.Mutex
	overlay      *html.Node
	removeEscape func()
	notifyTimer  *time.Timer
}

// New returns a presenter for page using clip for copies.
func New(page *hostpage.Page, selectors hostpage.Selectors, clip Clipboard) *Presenter {
	return &Presenter{page: page, selectors: selectors, clip: clip}
}

// Present shows the suggestion list for a post. Items carry 1-based
// ordinals; picking one triggers the host reply control, copies the text
// and closes the overlay.
func (p *Presenter) Present(post *html.Node, suggestions []string) {
	if len(suggestions) == 0 {
		logrus.Warn("Present called with no suggestions")
		return
	}
	p.Hide()

	overlay := hostpage.NewElement("div", overlayAttr, "true")
	content := hostpage.NewElement("div", "class", "replypilot-content")
	content.AppendChild(p.buildHeader())

	list := hostpage.NewElement("div", "class", "replypilot-list")
	for i, s := range suggestions {
		item := hostpage.NewElement("button",
			"class", "replypilot-item",
			"data-suggestion", s,
			"data-ordinal", fmt.Sprintf("%d", i+1),
		)
		item.AppendChild(hostpage.NewText(fmt.Sprintf("%d. %s", i+1, s)))
		list.AppendChild(item)
	}
	content.AppendChild(list)
	overlay.AppendChild(content)

	p.show(overlay)
	for _, item := range hostpage.FindAll(overlay, []string{"button[data-suggestion]"}) {
		item := item
		suggestion := hostpage.Attr(item, "data-suggestion")
		p.page.OnClick(item, func() {
			p.applySuggestion(post, suggestion)
			p.Hide()
		})
	}
}

// PresentError shows the overlay shell with an error header and message;
// nothing is selectable.
func (p *Presenter) PresentError(post *html.Node, message string) {
	p.Hide()

	overlay := hostpage.NewElement("div", overlayAttr, "true")
	content := hostpage.NewElement("div", "class", "replypilot-content")
	content.AppendChild(p.buildHeader())

	errBox := hostpage.NewElement("div", "class", "replypilot-error")
	errBox.AppendChild(hostpage.NewText(FormatErrorMessage(message)))
	hint := hostpage.NewElement("div", "class", "replypilot-error-hint")
	hint.AppendChild(hostpage.NewText("Please check your API key or try again later."))
	errBox.AppendChild(hint)
	content.AppendChild(errBox)
	overlay.AppendChild(content)

	p.show(overlay)
}

func (p *Presenter) buildHeader() *html.Node {
	header := hostpage.NewElement("div", "class", "replypilot-header")
	title := hostpage.NewElement("h3")
	title.AppendChild(hostpage.NewText("Reply Suggestions"))
	header.AppendChild(title)
	header.AppendChild(hostpage.NewElement("button", "class", "replypilot-close"))
	return header
}

func (p *Presenter) show(overlay *html.Node) {
	p.page.AppendChild(p.page.Body(), overlay)

	// Outside click and explicit close both dismiss.
	p.page.OnClick(overlay, p.Hide)
	if closeBtn := hostpage.FindFirst(overlay, []string{"button.replypilot-close"}); closeBtn != nil {
		p.page.OnClick(closeBtn, p.Hide)
	}

	p.mu.Lock()
	p.overlay = overlay
	// Escape dismisses once; the handler removes itself so later
	// overlays do not stack stale handlers.
	p.removeEscape = p.page.OnKey("Escape", func() { p.Hide() })
	p.mu.Unlock()
}

// Hide dismisses the current overlay, if any.
func (p *Presenter) Hide() {
	p.mu.Lock()
	overlay := p.overlay
	removeEscape := p.removeEscape
	p.overlay = nil
	p.removeEscape = nil
	p.mu.Unlock()

	if removeEscape != nil {
		removeEscape()
	}
	if overlay != nil {
		p.page.RemoveNode(overlay)
	}
	// Sweep any stray overlays left by a replaced body.
	for _, stray := range hostpage.FindAll(p.page.Body(), []string{"[" + overlayAttr + "]"}) {
		p.page.RemoveNode(stray)
	}
}

// Visible reports whether an overlay is currently shown.
func (p *Presenter) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlay != nil
}

// applySuggestion triggers the host page's native reply control for the
// post (best-effort) and copies the text to the clipboard, with a
// DOM-textarea fallback when the platform clipboard is unavailable.
func (p *Presenter) applySuggestion(post *html.Node, suggestion string) {
	if replyTrigger := hostpage.FindFirst(post, p.selectors.ReplyTrigger); replyTrigger != nil {
		p.page.Click(replyTrigger)
	} else {
		logrus.Debug("No native reply trigger found, copying only")
	}

	if err := p.clip.Write(suggestion); err != nil {
		logrus.Warnf("System clipboard write failed, using fallback: %v", err)
		if fbErr := p.fallbackCopy(suggestion); fbErr != nil {
			logrus.Errorf("Clipboard fallback failed: %v", fbErr)
			return
		}
	}
	p.showNotification()
}

// fallbackCopy mirrors the classic hidden-textarea copy path: the text
// is staged in an off-screen element the host environment can copy from.
func (p *Presenter) fallbackCopy(text string) error {
	area := hostpage.NewElement("textarea",
		"style", "position:fixed;left:-999999px;top:-999999px;",
		notificationAttr+"-staging", "true",
	)
	area.AppendChild(hostpage.NewText(text))
	p.page.AppendChild(p.page.Body(), area)
	time.AfterFunc(NotificationDisplay, func() { p.page.RemoveNode(area) })
	return nil
}

func (p *Presenter) showNotification() {
	note := hostpage.NewElement("div", notificationAttr, "true")
	note.AppendChild(hostpage.NewText("Reply copied to clipboard!"))
	p.page.AppendChild(p.page.Body(), note)

	p.mu.Lock()
	if p.notifyTimer != nil {
		p.notifyTimer.Stop()
	}
	p.notifyTimer = time.AfterFunc(NotificationDisplay, func() {
		p.page.RemoveNode(note)
	})
	p.mu.Unlock()
}

// errorPrefixes are upstream framing stripped before display.
var errorPrefixes = []string{
	"gemini API error:",
	"openai API error:",
	"Gemini API error:",
	"OpenAI API error:",
	"provider request failed:",
	"settings store",
}

// FormatErrorMessage produces the human-readable, bounded error text
// shown in the overlay.
func FormatErrorMessage(message string) string {
	msg := strings.TrimSpace(message)
	for _, prefix := range errorPrefixes {
		if strings.HasPrefix(msg, prefix) {
			msg = strings.TrimSpace(strings.TrimPrefix(msg, prefix))
		}
	}
	if msg == "" {
		msg = "Failed to generate reply suggestions"
	}
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength-3] + "..."
	}
	return msg
}
