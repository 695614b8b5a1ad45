package usecase

import (
	"fmt"
	"strings"

	"newsroom-backend/internal/notification/domain"

	"github.com/antchfx/htmlquery"
)

// PreviewWords is the word budget for article previews.
const PreviewWords = 20

type message struct {
	title string
	body  string
}

// catalog holds the localized title and body formats per event kind.
// Formats take the event title (or date for reminders) as their argument.
var catalog = map[string]map[domain.EventKind]message{
	"en": {
		domain.EventArticlePublished:     {title: "%s", body: "Tap to read the full story."},
		domain.EventBreakingNews:         {title: "Breaking: %s", body: "Tap for the latest update."},
		domain.EventEpaperUploaded:       {title: "Today's e-paper is here", body: "%s edition is now available to read."},
		domain.EventCategoryNews:         {title: "%s", body: "New in %s."},
		domain.EventSubscriptionReminder: {title: "Your subscription is expiring", body: "Your subscription ends on %s. Renew now to keep reading."},
	},
	"hi": {
		domain.EventArticlePublished:     {title: "%s", body: "पूरी खबर पढ़ने के लिए टैप करें।"},
		domain.EventBreakingNews:         {title: "ब्रेकिंग: %s", body: "ताज़ा अपडेट के लिए टैप करें।"},
		domain.EventEpaperUploaded:       {title: "आज का ई-पेपर उपलब्ध है", body: "%s संस्करण अब पढ़ने के लिए उपलब्ध है।"},
		domain.EventCategoryNews:         {title: "%s", body: "%s में नया।"},
		domain.EventSubscriptionReminder: {title: "आपकी सदस्यता समाप्त होने वाली है", body: "आपकी सदस्यता %s को समाप्त हो रही है। पढ़ना जारी रखने के लिए अभी नवीनीकरण करें।"},
	},
}

// Composer turns events into channel-agnostic payloads. It does no I/O.
type Composer struct {
	defaultLang string
}

func NewComposer(defaultLang string) *Composer {
	if _, ok := catalog[defaultLang]; !ok {
		defaultLang = "en"
	}
	return &Composer{defaultLang: defaultLang}
}

func (c *Composer) messages(lang string) map[domain.EventKind]message {
	if m, ok := catalog[strings.ToLower(lang)]; ok {
		return m
	}
	return catalog[c.defaultLang]
}

// Compose builds the payload for ev.
func (c *Composer) Compose(ev domain.Event) (domain.Payload, error) {
	msgs := c.messages(ev.Language)
	data := domain.PayloadData{
		ContentID: ev.ID,
		Category:  ev.Category,
		District:  ev.District,
		Priority:  domain.PriorityNormal,
		ImageURL:  ev.ImageURL,
	}

	var p domain.Payload
	switch ev.Kind {
	case domain.EventArticlePublished, domain.EventBreakingNews, domain.EventCategoryNews:
		m := msgs[ev.Kind]
		data.Preview = Preview(ev.Body)
		data.URL = "/news/" + ev.ID
		p = domain.Payload{Title: fmt.Sprintf(m.title, ev.Title), Body: data.Preview, Type: domain.TypeNewNews}
		switch ev.Kind {
		case domain.EventBreakingNews:
			p.Type = domain.TypeBreakingNews
			data.Priority = domain.PriorityHigh
		case domain.EventCategoryNews:
			p.Type = domain.TypeCategoryNews
		}
		if p.Body == "" {
			p.Body = m.body
			if ev.Kind == domain.EventCategoryNews {
				p.Body = fmt.Sprintf(m.body, ev.Category)
			}
		}

	case domain.EventEpaperUploaded:
		m := msgs[ev.Kind]
		edition := ev.Title
		if !ev.Date.IsZero() {
			edition = ev.Date.Format("02 Jan 2006")
		}
		data.URL = "/epaper/" + ev.ID
		p = domain.Payload{Title: m.title, Body: fmt.Sprintf(m.body, edition), Type: domain.TypeNewEpaper}

	case domain.EventCustom:
		data.URL = ev.URL
		p = domain.Payload{Title: ev.Title, Body: stripHTML(ev.Body), Type: domain.TypeCustom}

	case domain.EventSubscriptionReminder:
		m := msgs[ev.Kind]
		data.URL = "/subscription"
		p = domain.Payload{Title: m.title, Body: fmt.Sprintf(m.body, ev.ExpiresAt.Format("02 Jan 2006")), Type: domain.TypeSubscriptionReminder}

	default:
		return domain.Payload{}, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, ev.Kind)
	}

	if strings.TrimSpace(p.Title) == "" {
		return domain.Payload{}, fmt.Errorf("%w: %s event has no title", domain.ErrInvalidInput, ev.Kind)
	}
	p.Data = data
	return p, nil
}

// Preview returns the first PreviewWords words of body with markup removed,
// followed by "..." when anything was cut. Shorter plain text is returned
// byte for byte, whitespace included.
func Preview(body string) string {
	text := body
	if strings.Contains(body, "<") {
		text = stripHTML(body)
	}
	words := strings.Fields(text)
	if len(words) <= PreviewWords {
		return text
	}
	return strings.Join(words[:PreviewWords], " ") + "..."
}

func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := htmlquery.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	parts := make([]string, 0)
	for _, n := range htmlquery.Find(doc, "//text()[not(ancestor::script) and not(ancestor::style)]") {
		if t := strings.TrimSpace(n.Data); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
