package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"leadflow_backend/platform/phone"
)

// PayloadKind tells whether a scrap payload had a recognized shape.
type PayloadKind string

const (
	// PayloadStructured is a JSON object carrying at least one known field.
	PayloadStructured PayloadKind = "structured"
	// PayloadOpaque is anything else; only Raw is meaningful.
	PayloadOpaque PayloadKind = "opaque"
)

// ScrapInfo is the scraper payload. Known fields are typed, unknown keys
// land in Extra, and Raw keeps the exact bytes so the stored payload is
// never rewritten by the pipeline.
type ScrapInfo struct {
	Kind        PayloadKind
	Title       string
	Description string
	Emails      []string
	Phone       string
	Address     string
	Website     string
	Extra       map[string]json.RawMessage
	Raw         json.RawMessage
}

var knownStringKeys = map[string]func(*ScrapInfo, string){
	"title":       func(s *ScrapInfo, v string) { s.Title = v },
	"description": func(s *ScrapInfo, v string) { s.Description = v },
	"desc":        func(s *ScrapInfo, v string) { s.Description = v },
	"phone":       func(s *ScrapInfo, v string) { s.Phone = v },
	"address":     func(s *ScrapInfo, v string) { s.Address = v },
	"website":     func(s *ScrapInfo, v string) { s.Website = v },
}

// ParseScrapInfo decodes a raw scrap payload. Only malformed JSON is an error;
// valid JSON of an unexpected shape becomes an opaque payload.
func ParseScrapInfo(raw []byte) (ScrapInfo, error) {
	trimmed := bytes.TrimSpace(raw)
	info := ScrapInfo{Kind: PayloadOpaque}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return info, nil
	}
	if !json.Valid(trimmed) {
		return ScrapInfo{}, fmt.Errorf("scrap_info is not valid JSON")
	}
	info.Raw = append(json.RawMessage(nil), trimmed...)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		// Arrays, strings and numbers are kept as-is.
		return info, nil
	}

	structured := false
	var listed, alias []string
	for key, value := range fields {
		normalized := strings.ToLower(key)
		if setter, ok := knownStringKeys[normalized]; ok {
			var s string
			if err := json.Unmarshal(value, &s); err == nil {
				// "description" wins over the "desc" alias when both are present.
				if normalized == "desc" && info.Description != "" {
					continue
				}
				setter(&info, strings.TrimSpace(s))
				structured = true
				continue
			}
		}
		if normalized == "emails" || normalized == "email" {
			if emails, ok := decodeEmails(value); ok {
				if normalized == "emails" {
					listed = append(listed, emails...)
				} else {
					alias = append(alias, emails...)
				}
				structured = true
				continue
			}
		}
		if info.Extra == nil {
			info.Extra = make(map[string]json.RawMessage)
		}
		info.Extra[key] = value
	}

	// "email" is only a fallback for payloads without a usable "emails" list.
	info.Emails = listed
	if len(info.Emails) == 0 && len(alias) > 0 {
		info.Emails = alias
	}

	if structured {
		info.Kind = PayloadStructured
	}
	return info, nil
}

func decodeEmails(value json.RawMessage) ([]string, bool) {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return compactStrings(list), true
	}
	var single string
	if err := json.Unmarshal(value, &single); err == nil {
		return compactStrings([]string{single}), true
	}
	return nil, false
}

func compactStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// FirstEmail returns the first email of the payload, or "" when there is none.
func (s ScrapInfo) FirstEmail() string {
	if len(s.Emails) == 0 {
		return ""
	}
	return s.Emails[0]
}

// NormalizedPhone returns the phone in E.164 when it can be parsed for region.
func (s ScrapInfo) NormalizedPhone(region string) string {
	return phone.NormalizeE164(s.Phone, region)
}

// MarshalJSON writes the original payload back unchanged.
func (s ScrapInfo) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	out := make(map[string]any, len(s.Extra)+6)
	for k, v := range s.Extra {
		out[k] = v
	}
	setIfPresent(out, "title", s.Title)
	setIfPresent(out, "description", s.Description)
	setIfPresent(out, "phone", s.Phone)
	setIfPresent(out, "address", s.Address)
	setIfPresent(out, "website", s.Website)
	if len(s.Emails) > 0 {
		out["emails"] = s.Emails
	}
	if len(out) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes via ParseScrapInfo.
func (s *ScrapInfo) UnmarshalJSON(data []byte) error {
	info, err := ParseScrapInfo(data)
	if err != nil {
		return err
	}
	*s = info
	return nil
}

func setIfPresent(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
