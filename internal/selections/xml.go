package selections

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/zeroinst/zerocore"
)

// Read parses a Zero Install selections document (namespace
// http://zero-install.sourceforge.net/2004/injector/interface) into a
// Selections value and validates it against §3's invariants.
func Read(r io.Reader) (*Selections, error) {
	dec := xml.NewDecoder(r)
	var sels *Selections
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, zerocore.Errorf(zerocore.KindInvalid, "parsing selections document: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "selections" {
			return nil, zerocore.Errorf(zerocore.KindInvalid, "unexpected root element <%s>", start.Name.Local)
		}
		sels, err = decodeSelections(dec, start)
		if err != nil {
			return nil, err
		}
		break
	}
	if sels == nil {
		return nil, zerocore.Errorf(zerocore.KindInvalid, "no <selections> root element found")
	}
	if err := Validate(sels); err != nil {
		return nil, err
	}
	return sels, nil
}

func attr(start xml.StartElement, name string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func attrDefault(start xml.StartElement, name, def string) string {
	if v, ok := attr(start, name); ok {
		return v
	}
	return def
}

func attrPtr(start xml.StartElement, name string) *string {
	if v, ok := attr(start, name); ok {
		return &v
	}
	return nil
}

func decodeSelections(dec *xml.Decoder, start xml.StartElement) (*Selections, error) {
	main, _ := attr(start, "interface")
	command := attrDefault(start, "command", "run")
	sels := New(zerocore.InterfaceURI(main), command)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, zerocore.Errorf(zerocore.KindInvalid, "parsing <selections>: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "selection" {
				if err := skip(dec, t); err != nil {
					return nil, err
				}
				continue
			}
			impl, err := decodeSelection(dec, t)
			if err != nil {
				return nil, err
			}
			sels.Add(impl)
		case xml.EndElement:
			return sels, nil
		}
	}
}

func decodeSelection(dec *xml.Decoder, start xml.StartElement) (*ImplementationSelection, error) {
	iface, _ := attr(start, "interface")
	impl := &ImplementationSelection{
		InterfaceURI: zerocore.InterfaceURI(iface),
		Commands:     make(map[string]*Command),
		Digests:      make(ManifestDigest),
	}
	if id, ok := attr(start, "id"); ok {
		impl.ID = id
	}
	if v, ok := attr(start, "version"); ok {
		impl.Version = v
	}
	if a, ok := attr(start, "arch"); ok {
		impl.Architecture = a
	}
	if f, ok := attr(start, "from-feed"); ok {
		impl.FromFeed = f
	}
	for _, alg := range []Algorithm{SHA1New, SHA256, SHA256New} {
		if v, ok := attr(start, string(alg)); ok {
			impl.Digests[alg] = v
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, zerocore.Errorf(zerocore.KindInvalid, "parsing <selection interface=%q>: %w", iface, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "command":
				cmd, err := decodeCommand(dec, t)
				if err != nil {
					return nil, err
				}
				impl.Commands[cmd.Name] = cmd
			case "requires":
				dep, err := decodeRequires(dec, t)
				if err != nil {
					return nil, err
				}
				impl.Dependencies = append(impl.Dependencies, dep)
			case "restricts":
				r, err := decodeRestriction(dec, t)
				if err != nil {
					return nil, err
				}
				impl.Restrictions = append(impl.Restrictions, r)
			default:
				b, err := decodeBindingElement(dec, t)
				if err != nil {
					return nil, err
				}
				if b != nil {
					impl.Bindings = append(impl.Bindings, b)
				}
			}
		case xml.EndElement:
			return impl, nil
		}
	}
}

func decodeCommand(dec *xml.Decoder, start xml.StartElement) (*Command, error) {
	cmd := &Command{
		Name: attrDefault(start, "name", "run"),
		Path: attrDefault(start, "path", ""),
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, zerocore.Errorf(zerocore.KindInvalid, "parsing <command name=%q>: %w", cmd.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "runner":
				r, err := decodeRunner(dec, t)
				if err != nil {
					return nil, err
				}
				cmd.Runner = r
			case "requires":
				dep, err := decodeRequires(dec, t)
				if err != nil {
					return nil, err
				}
				cmd.Dependencies = append(cmd.Dependencies, dep)
			case "working-dir":
				src, _ := attr(t, "source")
				if err := skip(dec, t); err != nil {
					return nil, err
				}
				cmd.WorkingDir = src
			case "arg":
				value, err := decodeCharData(dec, t)
				if err != nil {
					return nil, err
				}
				cmd.Arguments = append(cmd.Arguments, Arg{Value: value})
			case "for-each":
				fe, err := decodeForEach(dec, t)
				if err != nil {
					return nil, err
				}
				cmd.Arguments = append(cmd.Arguments, fe)
			default:
				b, err := decodeBindingElement(dec, t)
				if err != nil {
					return nil, err
				}
				if b != nil {
					cmd.Bindings = append(cmd.Bindings, b)
				}
			}
		case xml.EndElement:
			return cmd, nil
		}
	}
}

func decodeRunner(dec *xml.Decoder, start xml.StartElement) (*Runner, error) {
	iface, _ := attr(start, "interface")
	r := &Runner{
		InterfaceURI: zerocore.InterfaceURI(iface),
		Command:      attrDefault(start, "command", "run"),
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, zerocore.Errorf(zerocore.KindInvalid, "parsing <runner interface=%q>: %w", iface, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "arg":
				value, err := decodeCharData(dec, t)
				if err != nil {
					return nil, err
				}
				r.Arguments = append(r.Arguments, Arg{Value: value})
			case "for-each":
				fe, err := decodeForEach(dec, t)
				if err != nil {
					return nil, err
				}
				r.Arguments = append(r.Arguments, fe)
			default:
				if err := skip(dec, t); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return r, nil
		}
	}
}

func decodeForEach(dec *xml.Decoder, start xml.StartElement) (ForEachArgs, error) {
	fe := ForEachArgs{
		ItemFrom:  attrDefault(start, "item-from", ""),
		Separator: attrPtr(start, "separator"),
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return fe, zerocore.Errorf(zerocore.KindInvalid, "parsing <for-each item-from=%q>: %w", fe.ItemFrom, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "arg":
				value, err := decodeCharData(dec, t)
				if err != nil {
					return fe, err
				}
				fe.Args = append(fe.Args, Arg{Value: value})
			case "for-each":
				nested, err := decodeForEach(dec, t)
				if err != nil {
					return fe, err
				}
				fe.Args = append(fe.Args, nested)
			default:
				if err := skip(dec, t); err != nil {
					return fe, err
				}
			}
		case xml.EndElement:
			return fe, nil
		}
	}
}

func decodeRequires(dec *xml.Decoder, start xml.StartElement) (Dependency, error) {
	iface, _ := attr(start, "interface")
	dep := Dependency{
		InterfaceURI: zerocore.InterfaceURI(iface),
		Importance:   Importance(attrDefault(start, "importance", string(Essential))),
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return dep, zerocore.Errorf(zerocore.KindInvalid, "parsing <requires interface=%q>: %w", iface, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			b, err := decodeBindingElement(dec, t)
			if err != nil {
				return dep, err
			}
			if b != nil {
				dep.Bindings = append(dep.Bindings, b)
			}
		case xml.EndElement:
			return dep, nil
		}
	}
}

func decodeRestriction(dec *xml.Decoder, start xml.StartElement) (Restriction, error) {
	iface, _ := attr(start, "interface")
	var ranges []string
	for _, a := range start.Attr {
		if a.Name.Local == "version" {
			ranges = append(ranges, a.Value)
		}
	}
	if err := skip(dec, start); err != nil {
		return Restriction{}, err
	}
	return Restriction{InterfaceURI: zerocore.InterfaceURI(iface), Ranges: strings.Join(ranges, "|")}, nil
}

var environmentKnownAttrs = map[string]bool{"name": true, "value": true, "insert": true, "mode": true, "separator": true, "default": true}
var executableKnownAttrs = map[string]bool{"name": true, "command": true}
var workingDirKnownAttrs = map[string]bool{"source": true}

func decodeBindingElement(dec *xml.Decoder, start xml.StartElement) (Binding, error) {
	switch start.Name.Local {
	case "environment":
		h, err := decodeHeader(dec, start, environmentKnownAttrs)
		if err != nil {
			return nil, err
		}
		return &EnvironmentBinding{
			Header:    h,
			Name:      attrDefault(start, "name", ""),
			Value:     attrPtr(start, "value"),
			Insert:    attrPtr(start, "insert"),
			Mode:      BindingMode(attrDefault(start, "mode", string(ModeReplace))),
			Separator: attrPtr(start, "separator"),
			Default:   attrPtr(start, "default"),
		}, nil
	case "executable-in-var":
		h, err := decodeHeader(dec, start, executableKnownAttrs)
		if err != nil {
			return nil, err
		}
		return &ExecutableInVar{
			Header:  h,
			Name:    attrDefault(start, "name", ""),
			Command: attrDefault(start, "command", "run"),
		}, nil
	case "executable-in-path":
		h, err := decodeHeader(dec, start, executableKnownAttrs)
		if err != nil {
			return nil, err
		}
		return &ExecutableInPath{
			Header:  h,
			Name:    attrDefault(start, "name", ""),
			Command: attrDefault(start, "command", "run"),
		}, nil
	case "working-dir":
		h, err := decodeHeader(dec, start, workingDirKnownAttrs)
		if err != nil {
			return nil, err
		}
		return &WorkingDirBinding{Header: h, Source: attrDefault(start, "source", "")}, nil
	default:
		return nil, skip(dec, start)
	}
}

// decodeHeader captures start's attributes not in known, plus its child
// elements, into a Header so a newer feed's additions round-trip through
// this execution core instead of being silently dropped.
func decodeHeader(dec *xml.Decoder, start xml.StartElement, known map[string]bool) (Header, error) {
	var h Header
	for _, a := range start.Attr {
		if known[a.Name.Local] {
			continue
		}
		if h.UnknownAttrs == nil {
			h.UnknownAttrs = map[string]string{}
		}
		h.UnknownAttrs[a.Name.Local] = a.Value
	}
	elems, err := captureChildren(dec, start)
	if err != nil {
		return h, err
	}
	h.UnknownElems = elems
	return h, nil
}

// captureChildren consumes start's subtree, recording each direct child
// element (with its own attributes and flattened text content) instead of
// discarding it, so decodeHeader can preserve it on the Header.
func captureChildren(dec *xml.Decoder, start xml.StartElement) ([]UnknownElement, error) {
	var elems []UnknownElement
	for {
		tok, err := dec.Token()
		if err != nil {
			return elems, zerocore.Errorf(zerocore.KindInvalid, "parsing <%s>: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el, err := captureElement(dec, t)
			if err != nil {
				return elems, err
			}
			elems = append(elems, el)
		case xml.EndElement:
			return elems, nil
		}
	}
}

// captureElement captures one element's attributes and the concatenated
// text content across its whole subtree, consuming its end tag.
func captureElement(dec *xml.Decoder, start xml.StartElement) (UnknownElement, error) {
	el := UnknownElement{Name: start.Name.Local}
	if len(start.Attr) > 0 {
		el.Attrs = map[string]string{}
		for _, a := range start.Attr {
			el.Attrs[a.Name.Local] = a.Value
		}
	}
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return el, zerocore.Errorf(zerocore.KindInvalid, "parsing <%s>: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				el.Content = sb.String()
				return el, nil
			}
			depth--
		}
	}
}

// decodeCharData reads the text content of a simple element and consumes
// its end tag.
func decodeCharData(dec *xml.Decoder, start xml.StartElement) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", zerocore.Errorf(zerocore.KindInvalid, "parsing <%s>: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return sb.String(), nil
			}
			depth--
		}
	}
}

// skip consumes start's subtree, recording nothing. Used for elements the
// execution core deliberately ignores.
func skip(dec *xml.Decoder, start xml.StartElement) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return zerocore.Errorf(zerocore.KindInvalid, "skipping <%s>: %w", start.Name.Local, err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}
