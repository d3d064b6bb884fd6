package override

// Merge combines multiple `-g` occurrences into the single ordered
// list a generator's rules are matched against. Per DESIGN.md's
// Open Question decision, the source reverses the list when consuming
// it: programs is in command-line (declaration) order, and Merge walks
// it back-to-front so the *last* flag on the command line is applied
// first — for an entry name given by several flags, the last flag's
// rules come first in the merged entry's rule list, followed by the
// rules of each earlier flag.
func Merge(programs []*Program) *Program {
	merged := &Program{}
	byName := map[string]int{} // entry name -> index into merged.Entries

	for i := len(programs) - 1; i >= 0; i-- {
		prog := programs[i]
		if prog == nil {
			continue
		}
		for _, entry := range prog.Entries {
			if idx, ok := byName[entry.Name]; ok {
				merged.Entries[idx].Rules = append(merged.Entries[idx].Rules, entry.Rules...)
				continue
			}
			byName[entry.Name] = len(merged.Entries)
			merged.Entries = append(merged.Entries, entry)
		}
	}
	return merged
}

// Validate runs the post-run checks described in spec.md §4.6: every
// rule that matched at least one test must have been used; a range
// rule's declared upper bound must not exceed the highest index it
// affected; an entry that matched no tests at all also fails. Returns
// one error per violation.
func Validate(p *Program) []error {
	var errs []error
	for i := range p.Entries {
		e := &p.Entries[i]
		if !e.WasMatched {
			errs = append(errs, &ValidationError{Entry: e.Name, Message: "override entry matched no tests"})
			continue
		}
		for j := range e.Rules {
			r := &e.Rules[j]
			if !r.WasUsed {
				errs = append(errs, &ValidationError{Entry: e.Name, Message: "rule was never applied"})
				continue
			}
			if (r.Kind == RuleAcceptRange || r.Kind == RuleRemoveRange) && r.Range.End != NoEnd {
				if r.MaxIndexAffected < r.Range.End {
					errs = append(errs, &ValidationError{
						Entry:   e.Name,
						Message: "range upper bound exceeds the highest index actually generated",
					})
				}
			}
		}
	}
	return errs
}

// ValidationError is a post-run override validation failure — a user
// error (spec.md §7), not a test failure.
type ValidationError struct {
	Entry   string
	Message string
}

func (e *ValidationError) Error() string {
	return "override: " + e.Entry + ": " + e.Message
}
