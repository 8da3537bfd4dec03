package eventlog

import (
	"regexp"
	"strconv"
	"strings"
)

// The EVTX renderer emits XML fragments, not documents, so field extraction
// works over the rendered text rather than a DOM. The pattern set mirrors
// what the EventData schema guarantees.
var (
	dataRe     = regexp.MustCompile(`<Data\s+Name="([^"]+)"[^>]*>([^<]*)</Data>`)
	descRe     = regexp.MustCompile(`<Description>([^<]+)</Description>`)
	eventIDRe  = regexp.MustCompile(`<EventID[^>]*>(\d+)</EventID>`)
	levelRe    = regexp.MustCompile(`<Level>(\d+)</Level>`)
	providerRe = regexp.MustCompile(`<Provider\s+Name="([^"]*)"`)
	computerRe = regexp.MustCompile(`<Computer>([^<]*)</Computer>`)
	channelRe  = regexp.MustCompile(`<Channel>([^<]*)</Channel>`)
	userIDRe   = regexp.MustCompile(`UserID="([^"]*)"`)
)

// xmlEntities is the full entity set the decoder handles, applied in this
// order, repeatedly, until the text stops changing.
var xmlEntities = []struct{ entity, replacement string }{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&apos;", "'"},
}

// decodeXMLEntities resolves the supported entity references. Multiple
// passes run until a fixed point so nested encodings unwind.
func decodeXMLEntities(text string) string {
	for {
		prev := text
		for _, e := range xmlEntities {
			text = strings.ReplaceAll(text, e.entity, e.replacement)
		}
		if text == prev {
			return text
		}
	}
}

// extractFromXML fills rec from its XML rendering: every EventData Data
// field, the header fields when still unset (Level is the exception: a valid
// <Level> in the XML always replaces it), and the description. A
// CommandLine data field seeds the description, overriding a
// <Description> block.
func extractFromXML(rec *Record, xml string) {
	for _, m := range dataRe.FindAllStringSubmatch(xml, -1) {
		name := m[1]
		value := decodeXMLEntities(m[2])
		rec.Data = append(rec.Data, DataField{Name: name, Value: value})
		if name == "CommandLine" {
			rec.Description = value
		}
	}

	if rec.Description == "" {
		if m := descRe.FindStringSubmatch(xml); m != nil {
			rec.Description = decodeXMLEntities(m[1])
		}
	}
	if rec.EventID == 0 {
		if m := eventIDRe.FindStringSubmatch(xml); m != nil {
			if id, err := strconv.ParseUint(m[1], 10, 32); err == nil {
				rec.EventID = uint32(id)
			}
		}
	}
	if m := levelRe.FindStringSubmatch(xml); m != nil {
		if lvl, err := strconv.ParseUint(m[1], 10, 8); err == nil && lvl <= uint64(LevelVerbose) {
			rec.Level = Level(lvl)
		}
	}
	if rec.Provider == "" {
		if m := providerRe.FindStringSubmatch(xml); m != nil {
			rec.Provider = m[1]
		}
	}
	if rec.Computer == "" {
		if m := computerRe.FindStringSubmatch(xml); m != nil {
			rec.Computer = m[1]
		}
	}
	if rec.Channel == "" {
		if m := channelRe.FindStringSubmatch(xml); m != nil {
			rec.Channel = m[1]
		}
	}
	if rec.UserSID == "" {
		if m := userIDRe.FindStringSubmatch(xml); m != nil {
			rec.UserSID = m[1]
		}
	}
}
