// Package selections implements the Zero Install execution core's data
// model: the solver's output naming one implementation per interface URI,
// the command to invoke, and the dependency graph connecting them.
//
// The deep inheritance hierarchy of the original object model
// (Capability → DefaultCapability → ...; Binding → specialized bindings) is
// re-expressed here as tagged variants with a small shared header, so that
// unrecognized attributes and child elements round-trip instead of being
// silently dropped by a forward-compatible feed.
package selections

import "github.com/zeroinst/zerocore"

// Algorithm names one of the manifest digest algorithms a selection may
// carry. Ranking (for ManifestDigest.Best) is sha256new > sha256 > sha1new,
// matching the real Zero Install implementation.
type Algorithm string

const (
	SHA1New   Algorithm = "sha1new"
	SHA256    Algorithm = "sha256"
	SHA256New Algorithm = "sha256new"
)

var algorithmRank = map[Algorithm]int{
	SHA256New: 3,
	SHA256:    2,
	SHA1New:   1,
}

// ManifestDigest is the set of algorithm-tagged content hashes identifying
// an implementation.
type ManifestDigest map[Algorithm]string

// Best returns the highest-ranked non-empty digest, preferring sha256new,
// then sha256, then sha1new.
func (d ManifestDigest) Best() (alg Algorithm, value string, ok bool) {
	bestRank := 0
	for a, v := range d {
		if v == "" {
			continue
		}
		if r := algorithmRank[a]; r > bestRank {
			bestRank = r
			alg, value, ok = a, v, true
		}
	}
	return alg, value, ok
}

// Importance classifies a Dependency: an essential dependency must resolve
// to a selection, a recommended one need not.
type Importance string

const (
	Essential   Importance = "essential"
	Recommended Importance = "recommended"
)

// Header is the shared prefix every Binding variant embeds, capturing
// attributes and child elements the decoder doesn't recognize so that
// newer feed schemas keep round-tripping through older execution cores.
type Header struct {
	UnknownAttrs map[string]string
	UnknownElems []UnknownElement
}

// UnknownElement preserves one opaque child element verbatim.
type UnknownElement struct {
	Name    string
	Attrs   map[string]string
	Content string
}

// Binding is how an implementation exposes itself, or is exposed to, a
// consumer: an environment variable, a synthetic executable, or a working
// directory. It never grants ownership of the implementation it names.
type Binding interface {
	bindingTag()
	header() *Header
}

// BindingMode selects how an Environment binding combines with the
// variable's previous value.
type BindingMode string

const (
	ModePrepend BindingMode = "prepend"
	ModeAppend  BindingMode = "append"
	ModeReplace BindingMode = "replace"
)

// EnvironmentBinding sets or extends an environment variable. Exactly one
// of Value or Insert is set; Default seeds the variable only when it was
// previously unset on the host.
type EnvironmentBinding struct {
	Header
	Name      string
	Value     *string
	Insert    *string
	Mode      BindingMode
	Separator *string
	Default   *string
}

func (*EnvironmentBinding) bindingTag()    {}
func (b *EnvironmentBinding) header() *Header { return &b.Header }

// ExecutableInVar deploys a run-environment trampoline and sets Name to its
// path.
type ExecutableInVar struct {
	Header
	Name    string
	Command string // defaults to "run" when empty
}

func (*ExecutableInVar) bindingTag()    {}
func (b *ExecutableInVar) header() *Header { return &b.Header }

// ExecutableInPath deploys a run-environment trampoline and prepends its
// directory to PATH.
type ExecutableInPath struct {
	Header
	Name    string
	Command string // defaults to "run" when empty
}

func (*ExecutableInPath) bindingTag()    {}
func (b *ExecutableInPath) header() *Header { return &b.Header }

// WorkingDirBinding sets the launched process's working directory to a
// path relative to the implementation root. Source must not be absolute
// and must not contain ".." segments.
type WorkingDirBinding struct {
	Header
	Source string
}

func (*WorkingDirBinding) bindingTag()    {}
func (b *WorkingDirBinding) header() *Header { return &b.Header }

// ArgItem is one element of a command's or runner's argument list: either
// a literal (possibly variable-bearing) argument, or a for-each macro that
// expands into zero or more arguments per iteration.
type ArgItem interface {
	argTag()
}

// Arg is a literal argument string, subject to $var / ${var} expansion at
// finalization time.
type Arg struct {
	Value string
}

func (Arg) argTag() {}

// ForEachArgs iterates ItemFrom's value split by Separator (defaulting to
// the platform path separator), binding "item" and emitting a copy of
// Args for each element. Nested ForEachArgs are permitted. "item" is
// removed from the environment after the loop even when it iterates zero
// times.
type ForEachArgs struct {
	ItemFrom  string
	Separator *string
	Args      []ArgItem
}

func (ForEachArgs) argTag() {}

// Runner declares that a command must be launched under another
// implementation's command.
type Runner struct {
	InterfaceURI zerocore.InterfaceURI
	Command      string // defaults to "run" when empty
	Arguments    []ArgItem
}

// Dependency is a required or recommended interface, carrying the bindings
// that expose its target implementation to the consumer.
type Dependency struct {
	InterfaceURI zerocore.InterfaceURI
	Importance   Importance
	Bindings     []Binding
}

// Restriction narrows the acceptable versions of an interface. Range
// syntax and satisfaction are solver-owned; the execution core only
// validates that every Restriction's interface is mentioned by some
// Dependency (see SPEC_FULL.md, Supplemented Features).
type Restriction struct {
	InterfaceURI zerocore.InterfaceURI
	Ranges       string
}

// Command is one entry point of an implementation.
type Command struct {
	Name         string
	Path         string // empty when the command has no executable of its own (pure runner)
	Arguments    []ArgItem
	Runner       *Runner
	WorkingDir   string // empty means unset
	Bindings     []Binding
	Dependencies []Dependency
}

// ImplementationSelection is a solver-chosen implementation of an
// interface.
type ImplementationSelection struct {
	InterfaceURI zerocore.InterfaceURI
	ID           string
	Version      string
	Architecture string
	FromFeed     string // empty when absent
	Commands     map[string]*Command
	Bindings     []Binding
	Dependencies []Dependency
	Restrictions []Restriction
	Digests      ManifestDigest
}

// PackagePrefix marks implementation IDs managed by the native package
// manager rather than the content-addressed store.
const PackagePrefix = "package:"

// IsPackageImplementation reports whether i is externally managed: its
// environment bindings are skipped during injection (executable bindings
// still deploy trampolines).
func (i *ImplementationSelection) IsPackageImplementation() bool {
	return len(i.ID) >= len(PackagePrefix) && i.ID[:len(PackagePrefix)] == PackagePrefix
}

// Selections is the solver's output: one implementation per interface URI,
// fixing the main interface and the command to run on it.
type Selections struct {
	MainInterfaceURI zerocore.InterfaceURI
	MainCommand      string

	order []zerocore.InterfaceURI
	byURI map[zerocore.InterfaceURI]*ImplementationSelection
}

// New returns an empty Selections for the given main interface/command.
func New(main zerocore.InterfaceURI, mainCommand string) *Selections {
	return &Selections{
		MainInterfaceURI: main,
		MainCommand:      mainCommand,
		byURI:            make(map[zerocore.InterfaceURI]*ImplementationSelection),
	}
}

// Add registers impl, preserving insertion order for the binding-
// application pass (§4.1 step 1 iterates implementations in document
// order).
func (s *Selections) Add(impl *ImplementationSelection) {
	if _, exists := s.byURI[impl.InterfaceURI]; !exists {
		s.order = append(s.order, impl.InterfaceURI)
	}
	s.byURI[impl.InterfaceURI] = impl
}

// Lookup returns the implementation selected for uri, if any.
func (s *Selections) Lookup(uri zerocore.InterfaceURI) (*ImplementationSelection, bool) {
	impl, ok := s.byURI[uri]
	return impl, ok
}

// Implementations returns every selected implementation in insertion
// (document) order.
func (s *Selections) Implementations() []*ImplementationSelection {
	out := make([]*ImplementationSelection, 0, len(s.order))
	for _, uri := range s.order {
		out = append(out, s.byURI[uri])
	}
	return out
}

// Main returns the implementation selected for the main interface.
func (s *Selections) Main() (*ImplementationSelection, bool) {
	return s.Lookup(s.MainInterfaceURI)
}

// Len returns the number of selected implementations.
func (s *Selections) Len() int { return len(s.order) }
