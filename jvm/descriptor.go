package jvm

// paramWidths lists each parameter's slot width in declared order (1 or
// 2), optionally prefixed with a 1-wide receiver slot for instance calls.
// Used by buildCalleeLocals to drain the caller's stack correctly for
// multi-slot (long/double) parameters, the way original_source's argc()
// helper walks a descriptor while skipping class-type references.
func paramWidths(desc string, hasReceiver bool) []int {
	var widths []int
	if hasReceiver {
		widths = append(widths, 1)
	}
	i := 1 // skip leading '('
	for i < len(desc) && desc[i] != ')' {
		switch desc[i] {
		case 'J', 'D':
			widths = append(widths, 2)
			i++
		case 'L':
			for i < len(desc) && desc[i] != ';' {
				i++
			}
			i++ // consume ';'
			widths = append(widths, 1)
		case '[':
			i++
			for i < len(desc) && desc[i] == '[' {
				i++
			}
			if i < len(desc) && desc[i] == 'L' {
				for i < len(desc) && desc[i] != ';' {
					i++
				}
			}
			i++
			widths = append(widths, 1)
		default:
			i++
			widths = append(widths, 1)
		}
	}
	return widths
}
