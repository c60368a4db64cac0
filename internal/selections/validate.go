package selections

import "github.com/zeroinst/zerocore"

// Validate checks sels against the invariants of §3: the main
// implementation is present, every essential dependency and every runner
// target resolves to exactly one selection, referenced commands exist, and
// (per SPEC_FULL.md's supplemented validation) every Restriction's
// interface is mentioned by some Dependency.
func Validate(sels *Selections) error {
	if sels.MainInterfaceURI == "" {
		return zerocore.Errorf(zerocore.KindInvalid, "selections document has no main interface")
	}
	main, ok := sels.Main()
	if !ok {
		return zerocore.Errorf(zerocore.KindInvalid, "no implementation selected for main interface %q", sels.MainInterfaceURI)
	}
	if sels.MainCommand != "" {
		if _, ok := main.Commands[sels.MainCommand]; !ok {
			return zerocore.Errorf(zerocore.KindInvalid, "main command %q not found on implementation of %q", sels.MainCommand, sels.MainInterfaceURI)
		}
	}

	referenced := make(map[zerocore.InterfaceURI]bool)

	for _, impl := range sels.Implementations() {
		for _, dep := range impl.Dependencies {
			referenced[dep.InterfaceURI] = true
			if dep.Importance == Essential {
				if _, ok := sels.Lookup(dep.InterfaceURI); !ok {
					return zerocore.Errorf(zerocore.KindInvalid, "essential dependency %q of %q has no selection", dep.InterfaceURI, impl.InterfaceURI)
				}
			}
		}
		for _, cmd := range impl.Commands {
			for _, dep := range cmd.Dependencies {
				referenced[dep.InterfaceURI] = true
				if dep.Importance == Essential {
					if _, ok := sels.Lookup(dep.InterfaceURI); !ok {
						return zerocore.Errorf(zerocore.KindInvalid, "essential dependency %q of %q's command %q has no selection", dep.InterfaceURI, impl.InterfaceURI, cmd.Name)
					}
				}
			}
			if cmd.Runner != nil {
				referenced[cmd.Runner.InterfaceURI] = true
				target, ok := sels.Lookup(cmd.Runner.InterfaceURI)
				if !ok {
					return zerocore.Errorf(zerocore.KindInvalid, "runner target %q of %q's command %q has no selection", cmd.Runner.InterfaceURI, impl.InterfaceURI, cmd.Name)
				}
				runnerCmd := cmd.Runner.Command
				if runnerCmd == "" {
					runnerCmd = "run"
				}
				if _, ok := target.Commands[runnerCmd]; !ok {
					return zerocore.Errorf(zerocore.KindInvalid, "runner command %q not found on implementation of %q", runnerCmd, cmd.Runner.InterfaceURI)
				}
			}
		}
	}

	// Second pass: a restriction may name an interface referenced by a
	// dependency declared on a different implementation than the one
	// carrying the restriction.
	for _, impl := range sels.Implementations() {
		for _, r := range impl.Restrictions {
			if !referenced[r.InterfaceURI] {
				return zerocore.Errorf(zerocore.KindInvalid, "restriction on %q in %q is not referenced by any dependency", r.InterfaceURI, impl.InterfaceURI)
			}
		}
	}

	return nil
}
