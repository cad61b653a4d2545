package scoring

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

// UnknownClient names a client no tier could resolve
const UnknownClient = "Unknown"

var (
	idPrefix = regexp.MustCompile(`^(auto-|meeting-|call-|transcript-)`)
	idSuffix = regexp.MustCompile(`-(\d{10,}|transcript|call|meeting).*$`)
)

var clientSizes = map[string]bool{
	"startup":    true,
	"scaleup":    true,
	"enterprise": true,
}

var domainKeywords = []struct {
	domain   string
	keywords []string
}{
	{"fintech", []string{"fintech", "banking", "payments", "crypto"}},
	{"healthcare", []string{"healthcare", "medical", "pharma", "biotech"}},
	{"e-commerce", []string{"ecommerce", "retail", "marketplace", "shopping"}},
	{"saas", []string{"saas", "software", "platform", "api"}},
}

// resolveClient tries the model, then the meeting id, then domain keywords
func (e *Engine) resolveClient(ctx context.Context, t *entities.Transcript, model, input string) entities.ClientInfo {
	obj, outcome, f := e.req.run(ctx, pass{
		track:   trackOpportunity,
		name:    passClient,
		model:   model,
		prompt:  clientPrompt,
		context: input,
		shape:   clientShape,
	})
	e.observe(trackOpportunity, passClient, outcome)

	if f == nil {
		if client := stringField(obj, "client", ""); client != "" && !strings.EqualFold(client, "null") {
			info := entities.ClientInfo{
				Client: entities.StringPtr(client),
				Domain: entities.StringPtr(stringField(obj, "domain", "")),
				Source: entities.ClientSourceLLM,
			}
			if size := strings.ToLower(stringField(obj, "size", "")); clientSizes[size] {
				info.Size = &size
			}
			return info
		}
	}

	domain := DomainFromContext(input)
	if name := ClientFromFilename(t.MeetingID); name != "" {
		return entities.ClientInfo{
			Client: entities.StringPtr(name),
			Domain: domain,
			Source: entities.ClientSourceFilename,
		}
	}

	return entities.ClientInfo{
		Client: entities.StringPtr(valueOr(t.Company, UnknownClient)),
		Domain: domain,
		Source: entities.ClientSourceDomain,
	}
}

// ClientFromFilename derives a client name from a meeting id or file stem.
// Automation prefixes, numeric ids and trailing meeting words are stripped
// and the first one or two hyphenated words are kept.
func ClientFromFilename(meetingID string) string {
	name := strings.ToLower(strings.TrimSpace(meetingID))
	name = idPrefix.ReplaceAllString(name, "")
	name = idSuffix.ReplaceAllString(name, "")

	parts := strings.Split(name, "-")
	if len(parts) < 2 {
		return ""
	}
	if len(parts[1]) > 2 {
		parts = parts[:2]
	} else {
		parts = parts[:1]
	}

	client := cases.Title(language.Und).String(strings.Join(parts, " "))
	lower := strings.ToLower(client)
	if len(client) <= 3 {
		return ""
	}
	for _, stop := range []string{"auto", "meeting", "call"} {
		if strings.HasPrefix(lower, stop) {
			return ""
		}
	}
	return client
}

// DomainFromContext classifies the industry by keyword, or returns nil
func DomainFromContext(input string) *string {
	lower := strings.ToLower(input)
	for _, d := range domainKeywords {
		for _, kw := range d.keywords {
			if strings.Contains(lower, kw) {
				domain := d.domain
				return &domain
			}
		}
	}
	return nil
}
