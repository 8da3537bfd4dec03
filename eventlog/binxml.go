package eventlog

import (
	"fmt"
	"strings"

	"github.com/joshuapare/tracekit/internal/format"
)

// Binary XML token stream. Records carry their markup as tokenised XML with
// per-chunk template and name caches; rendering expands templates and
// substitution values back into XML text, which the shared extraction layer
// then consumes. Offsets inside the stream are chunk-relative.
const (
	tokenEOF            = 0x00
	tokenOpenStart      = 0x01 // | 0x40 when the element has attributes
	tokenCloseStart     = 0x02
	tokenCloseEmpty     = 0x03
	tokenEndElement     = 0x04
	tokenValueText      = 0x05
	tokenAttribute      = 0x06
	tokenCDATA          = 0x07
	tokenCharRef        = 0x08
	tokenEntityRef      = 0x09
	tokenPITarget       = 0x0A
	tokenPIData         = 0x0B
	tokenTemplate       = 0x0C
	tokenNormalSubst    = 0x0D
	tokenOptionalSubst  = 0x0E
	tokenFragmentHeader = 0x0F

	tokenHasMore = 0x40 // more-data flag on start-element and attribute tokens
)

// Binary XML value types.
const (
	vtNull       = 0x00
	vtString     = 0x01
	vtAnsiString = 0x02
	vtInt8       = 0x03
	vtUint8      = 0x04
	vtInt16      = 0x05
	vtUint16     = 0x06
	vtInt32      = 0x07
	vtUint32     = 0x08
	vtInt64      = 0x09
	vtUint64     = 0x0A
	vtReal32     = 0x0B
	vtReal64     = 0x0C
	vtBool       = 0x0D
	vtBinary     = 0x0E
	vtGUID       = 0x0F
	vtSizeT      = 0x10
	vtFiletime   = 0x11
	vtSystime    = 0x12
	vtSID        = 0x13
	vtHexInt32   = 0x14
	vtHexInt64   = 0x15
	vtBinXML     = 0x21
	vtArrayFlag  = 0x80
)

// binValue is one substitution value: a type tag and its data region within
// the chunk.
type binValue struct {
	typ  byte
	off  int
	size int
}

// binxmlReader renders one record's token stream. A reader is single-use and
// carries only the chunk it reads from.
type binxmlReader struct {
	chunk []byte
}

type errTruncatedStream struct{ where string }

func (e *errTruncatedStream) Error() string {
	return fmt.Sprintf("binxml: truncated stream at %s", e.where)
}

// render walks the stream between start and end and returns the XML text.
func (r *binxmlReader) render(start, end int) (string, error) {
	var sb strings.Builder
	if err := r.renderContent(&sb, start, end, nil); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// renderContent processes tokens until EOF or the region end. values is the
// active substitution frame, nil outside template bodies.
func (r *binxmlReader) renderContent(sb *strings.Builder, pos, end int, values []binValue) error {
	for pos < end {
		tok := r.chunk[pos]
		switch tok & ^byte(tokenHasMore) {
		case tokenEOF:
			return nil
		case tokenFragmentHeader:
			pos += 4 // token, major, minor, flags
		case tokenTemplate:
			next, err := r.renderTemplateInstance(sb, pos)
			if err != nil {
				return err
			}
			pos = next
		case tokenOpenStart:
			next, err := r.renderElement(sb, pos, values)
			if err != nil {
				return err
			}
			pos = next
		case tokenValueText:
			next, err := r.renderText(sb, pos)
			if err != nil {
				return err
			}
			pos = next
		case tokenNormalSubst, tokenOptionalSubst:
			next, err := r.renderSubstitution(sb, pos, values)
			if err != nil {
				return err
			}
			pos = next
		case tokenCharRef:
			if !format.Has(r.chunk, pos+1, 2) {
				return &errTruncatedStream{"char ref"}
			}
			sb.WriteString(xmlEscape(string(rune(format.U16(r.chunk[pos+1:])))))
			pos += 3
		case tokenEntityRef:
			if !format.Has(r.chunk, pos+1, 4) {
				return &errTruncatedStream{"entity ref"}
			}
			name, _, err := r.readName(int(format.U32(r.chunk[pos+1:])), pos+5)
			if err != nil {
				return err
			}
			sb.WriteString("&" + name + ";")
			pos += 5
		case tokenCDATA:
			if !format.Has(r.chunk, pos+1, 2) {
				return &errTruncatedStream{"cdata"}
			}
			n := int(format.U16(r.chunk[pos+1:]))
			raw, ok := format.Slice(r.chunk, pos+3, n*2)
			if !ok {
				return &errTruncatedStream{"cdata body"}
			}
			sb.WriteString(xmlEscape(format.DecodeUTF16LE(raw)))
			pos += 3 + n*2
		case tokenPITarget, tokenPIData:
			pos++ // processing instructions carry no value for our purposes
		case tokenEndElement:
			// Handled by renderElement; at this level it means imbalance.
			return nil
		default:
			return fmt.Errorf("binxml: unexpected token 0x%02X at %d", tok, pos)
		}
	}
	return nil
}

// renderTemplateInstance expands a template instance: resolves the template
// definition (inline or cached earlier in the chunk), reads the substitution
// array, and renders the body against it.
//
//	token (1), unknown (1), template id (4), definition offset (4)
//	definition: next offset (4), GUID (16), body size (4), body
//	instance data: count (4), count * {size u16, type u8, pad u8}, values
func (r *binxmlReader) renderTemplateInstance(sb *strings.Builder, pos int) (int, error) {
	if !format.Has(r.chunk, pos, 10) {
		return 0, &errTruncatedStream{"template instance"}
	}
	defOff := int(format.U32(r.chunk[pos+6:]))
	pos += 10

	const defHeaderSize = 24 // next offset + GUID + body size
	if !format.Has(r.chunk, defOff, defHeaderSize) {
		return 0, &errTruncatedStream{"template definition"}
	}
	bodySize := int(format.U32(r.chunk[defOff+20:]))
	bodyOff := defOff + defHeaderSize
	if !format.Has(r.chunk, bodyOff, bodySize) {
		return 0, &errTruncatedStream{"template body"}
	}

	// When the definition is resident here, the instance data follows it;
	// otherwise the definition was materialised by an earlier record and the
	// instance data follows immediately.
	if defOff >= pos-10 {
		pos = bodyOff + bodySize
	}

	values, next, err := r.readValueArray(pos)
	if err != nil {
		return 0, err
	}
	if err := r.renderContent(sb, bodyOff, bodyOff+bodySize, values); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *binxmlReader) readValueArray(pos int) ([]binValue, int, error) {
	if !format.Has(r.chunk, pos, 4) {
		return nil, 0, &errTruncatedStream{"value array count"}
	}
	count := int(format.U32(r.chunk[pos:]))
	pos += 4
	if count > 0x1000 {
		return nil, 0, fmt.Errorf("binxml: implausible substitution count %d", count)
	}
	if !format.Has(r.chunk, pos, count*4) {
		return nil, 0, &errTruncatedStream{"value descriptors"}
	}
	values := make([]binValue, count)
	for i := range values {
		values[i].size = int(format.U16(r.chunk[pos+i*4:]))
		values[i].typ = r.chunk[pos+i*4+2]
	}
	pos += count * 4
	for i := range values {
		if !format.Has(r.chunk, pos, values[i].size) {
			return nil, 0, &errTruncatedStream{"value data"}
		}
		values[i].off = pos
		pos += values[i].size
	}
	return values, pos, nil
}

// renderElement renders one element, its attributes and children.
//
//	token (1), dependency id (2), data size (4), name offset (4)
//	[attribute list size (4) when token has 0x40]
func (r *binxmlReader) renderElement(sb *strings.Builder, pos int, values []binValue) (int, error) {
	tok := r.chunk[pos]
	hasAttrs := tok&tokenHasMore != 0
	if !format.Has(r.chunk, pos, 11) {
		return 0, &errTruncatedStream{"element header"}
	}
	nameOff := int(format.U32(r.chunk[pos+7:]))
	pos += 11
	name, pos, err := r.readName(nameOff, pos)
	if err != nil {
		return 0, err
	}
	if hasAttrs {
		if !format.Has(r.chunk, pos, 4) {
			return 0, &errTruncatedStream{"attribute list"}
		}
		pos += 4
	}

	sb.WriteString("<" + name)
	for hasAttrs && pos < len(r.chunk) {
		attrTok := r.chunk[pos]
		if attrTok&^byte(tokenHasMore) != tokenAttribute {
			break
		}
		next, err := r.renderAttribute(sb, pos, values)
		if err != nil {
			return 0, err
		}
		pos = next
		if attrTok&tokenHasMore == 0 {
			break
		}
	}

	if pos >= len(r.chunk) {
		return 0, &errTruncatedStream{"element close"}
	}
	switch r.chunk[pos] {
	case tokenCloseEmpty:
		sb.WriteString("/>")
		return pos + 1, nil
	case tokenCloseStart:
		pos++
	default:
		return 0, fmt.Errorf("binxml: expected close token, got 0x%02X", r.chunk[pos])
	}
	sb.WriteString(">")

	// Children until the end-element token.
	for pos < len(r.chunk) && r.chunk[pos] != tokenEndElement {
		var body strings.Builder
		tok := r.chunk[pos] & ^byte(tokenHasMore)
		var err error
		var next int
		switch tok {
		case tokenOpenStart:
			next, err = r.renderElement(&body, pos, values)
		case tokenValueText:
			next, err = r.renderText(&body, pos)
		case tokenNormalSubst, tokenOptionalSubst:
			next, err = r.renderSubstitution(&body, pos, values)
		case tokenCharRef:
			if !format.Has(r.chunk, pos+1, 2) {
				return 0, &errTruncatedStream{"char ref"}
			}
			body.WriteString(xmlEscape(string(rune(format.U16(r.chunk[pos+1:])))))
			next = pos + 3
		case tokenEntityRef:
			if !format.Has(r.chunk, pos+1, 4) {
				return 0, &errTruncatedStream{"entity ref"}
			}
			var ename string
			ename, next, err = r.readName(int(format.U32(r.chunk[pos+1:])), pos+5)
			if err == nil {
				body.WriteString("&" + ename + ";")
			}
		case tokenCDATA:
			if !format.Has(r.chunk, pos+1, 2) {
				return 0, &errTruncatedStream{"cdata"}
			}
			n := int(format.U16(r.chunk[pos+1:]))
			raw, ok := format.Slice(r.chunk, pos+3, n*2)
			if !ok {
				return 0, &errTruncatedStream{"cdata body"}
			}
			body.WriteString(xmlEscape(format.DecodeUTF16LE(raw)))
			next = pos + 3 + n*2
		case tokenEOF:
			sb.WriteString(body.String())
			sb.WriteString("</" + name + ">")
			return pos, nil
		default:
			return 0, fmt.Errorf("binxml: unexpected child token 0x%02X", r.chunk[pos])
		}
		if err != nil {
			return 0, err
		}
		sb.WriteString(body.String())
		pos = next
	}
	if pos >= len(r.chunk) {
		return 0, &errTruncatedStream{"end element"}
	}
	sb.WriteString("</" + name + ">")
	return pos + 1, nil
}

// renderAttribute renders one attribute: name offset then a text value or a
// substitution.
func (r *binxmlReader) renderAttribute(sb *strings.Builder, pos int, values []binValue) (int, error) {
	if !format.Has(r.chunk, pos, 5) {
		return 0, &errTruncatedStream{"attribute header"}
	}
	nameOff := int(format.U32(r.chunk[pos+1:]))
	pos += 5
	name, pos, err := r.readName(nameOff, pos)
	if err != nil {
		return 0, err
	}

	var val strings.Builder
	if pos >= len(r.chunk) {
		return 0, &errTruncatedStream{"attribute value"}
	}
	switch r.chunk[pos] & ^byte(tokenHasMore) {
	case tokenValueText:
		pos, err = r.renderText(&val, pos)
	case tokenNormalSubst, tokenOptionalSubst:
		pos, err = r.renderSubstitution(&val, pos, values)
	default:
		return 0, fmt.Errorf("binxml: unexpected attribute value token 0x%02X", r.chunk[pos])
	}
	if err != nil {
		return 0, err
	}
	sb.WriteString(` ` + name + `="` + val.String() + `"`)
	return pos, nil
}

// renderText renders a value-text token (type is always a sized UTF-16
// string).
func (r *binxmlReader) renderText(sb *strings.Builder, pos int) (int, error) {
	if !format.Has(r.chunk, pos, 4) {
		return 0, &errTruncatedStream{"value text"}
	}
	n := int(format.U16(r.chunk[pos+2:]))
	raw, ok := format.Slice(r.chunk, pos+4, n*2)
	if !ok {
		return 0, &errTruncatedStream{"value text body"}
	}
	sb.WriteString(xmlEscape(format.DecodeUTF16LE(raw)))
	return pos + 4 + n*2, nil
}

// renderSubstitution renders the referenced value from the active frame.
// Optional substitutions of null values render nothing.
func (r *binxmlReader) renderSubstitution(sb *strings.Builder, pos int, values []binValue) (int, error) {
	if !format.Has(r.chunk, pos, 4) {
		return 0, &errTruncatedStream{"substitution"}
	}
	id := int(format.U16(r.chunk[pos+1:]))
	pos += 4
	if id >= len(values) {
		return pos, nil // dangling substitution: render nothing
	}
	v := values[id]
	if v.typ == vtBinXML {
		if err := r.renderContent(sb, v.off, v.off+v.size, nil); err != nil {
			return 0, err
		}
		return pos, nil
	}
	sb.WriteString(xmlEscape(r.formatValue(v)))
	return pos, nil
}

// readName reads a chunk name structure. Names live either in the chunk's
// common-string region or inline right at the cursor; when inline, the
// cursor advances past the structure.
//
//	0x00 4  next-name offset
//	0x04 2  name hash
//	0x06 2  character count
//	0x08 .. UTF-16LE characters + NUL
func (r *binxmlReader) readName(nameOff, cursor int) (string, int, error) {
	if !format.Has(r.chunk, nameOff, 10) {
		return "", 0, &errTruncatedStream{"name"}
	}
	n := int(format.U16(r.chunk[nameOff+6:]))
	raw, ok := format.Slice(r.chunk, nameOff+8, n*2)
	if !ok {
		return "", 0, &errTruncatedStream{"name chars"}
	}
	name := format.DecodeUTF16LE(raw)
	if nameOff == cursor {
		cursor = nameOff + 8 + n*2 + 2 // past the terminating NUL
	}
	return name, cursor, nil
}

func xmlEscape(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}
