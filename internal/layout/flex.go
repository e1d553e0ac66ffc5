package layout

import "github.com/kbrowse/kbrowse/internal/style"

// layoutFlex arranges a flex container's children. The container's
// own width/margins are already resolved by computeBlockWidth; this
// function only arranges box.Children within box's content rect.
//
// Flex-grow distribution and line wrapping are implemented for the
// row main axis, matching this design's primary use (horizontal
// toolbars/rows); column-direction flex still positions and sizes
// children (base size, justify-content, align-items) but does not
// grow children past their base size on the vertical axis, since a
// block box's height is otherwise always content-derived rather than
// container-constrained in this engine.
func layoutFlex(box *LayoutBox) {
	cs := box.Style
	row := cs.FlexDirection != "column" && cs.FlexDirection != "column-reverse"
	reversed := cs.FlexDirection == "row-reverse" || cs.FlexDirection == "column-reverse"
	gap := resolveCells(cs.Gap, box.Dimensions.Content.Width)
	wrap := cs.FlexWrap == "wrap" || cs.FlexWrap == "wrap-reverse"

	children := box.Children
	if reversed {
		children = reverseBoxes(children)
	}

	// Step 1: lay each child out at the container's content width to
	// obtain a natural size, then resolve its main-axis base size.
	base := make([]int, len(children))
	for i, c := range children {
		Layout(c, 0, 0, box.Dimensions.Content.Width)
		base[i] = flexBaseSize(c, row, box.Dimensions.Content.Width)
	}

	// Step 2: wrap into lines (row axis only).
	var lines [][]int
	if !wrap || !row {
		idx := make([]int, len(children))
		for i := range idx {
			idx[i] = i
		}
		lines = [][]int{idx}
	} else {
		containerMain := box.Dimensions.Content.Width
		var cur []int
		used := 0
		for i := range children {
			need := base[i]
			if len(cur) > 0 {
				need += gap
			}
			if len(cur) > 0 && used+need > containerMain {
				lines = append(lines, cur)
				cur = nil
				used = 0
				need = base[i]
			}
			cur = append(cur, i)
			used += need
		}
		if len(cur) > 0 {
			lines = append(lines, cur)
		}
	}

	crossCursor := 0
	totalCross, mainExtent := 0, 0
	for li, line := range lines {
		if li > 0 {
			crossCursor += gap
			totalCross += gap
		}
		lineCross, lineMain := layoutFlexLine(box, children, base, line, row, gap, cs, crossCursor)
		crossCursor += lineCross
		totalCross += lineCross
		if lineMain > mainExtent {
			mainExtent = lineMain
		}
	}
	if row {
		// Cross-axis container size: line heights plus inter-line gaps.
		box.Dimensions.Content.Height = totalCross
	} else {
		box.Dimensions.Content.Height = mainExtent
	}
}

// layoutFlexLine distributes free space (row axis only), positions
// children along the main axis per justify-content, positions them
// along the cross axis per align-items, and returns the line's
// cross-axis extent plus its main-axis extent.
func layoutFlexLine(box *LayoutBox, children []*LayoutBox, base []int, idx []int, row bool, gap int, cs *style.ComputedStyle, crossStart int) (int, int) {
	n := len(idx)
	mainSizes := make([]int, n)
	used := 0
	totalGrow := 0.0
	for k, i := range idx {
		mainSizes[k] = base[i]
		used += base[i]
		if k > 0 {
			used += gap
		}
		if children[i].Style != nil {
			totalGrow += children[i].Style.FlexGrow
		}
	}

	containerMain := box.Dimensions.Content.Width
	if row && totalGrow > 0 {
		free := containerMain - used
		if free > 0 {
			distributed := 0
			lastGrowK := -1
			for k, i := range idx {
				g := children[i].Style.FlexGrow
				if g <= 0 {
					continue
				}
				share := int(float64(free) * g / totalGrow)
				mainSizes[k] += share
				distributed += share
				lastGrowK = k
			}
			if lastGrowK >= 0 {
				mainSizes[lastGrowK] += free - distributed
			}
		}
	}

	justifyBound := containerMain
	if !row {
		justifyBound = used // column axis has no fixed bound; justify against its own extent
	}
	positions := justifyPositions(mainSizes, gap, justifyBound, cs.JustifyContent)

	// Final placement: re-run layout at each child's resolved slot so
	// every descendant coordinate (nested boxes, wrapped lines) lands
	// in the container's frame, with the distributed main size forced
	// onto grown items.
	cx, cy := box.Dimensions.Content.X, box.Dimensions.Content.Y
	lineCross := 1
	for k, i := range idx {
		c := children[i]
		if row {
			c.flexWidth, c.flexWidthSet = mainSizes[k], true
			Layout(c, cx+positions[k], cy+crossStart, mainSizes[k])
			c.flexWidthSet = false
		} else {
			Layout(c, cx+crossStart, cy+positions[k], box.Dimensions.Content.Width)
			if explicitMain(c, box.Dimensions.Content.Width) >= 0 {
				c.Dimensions.Content.Height = mainSizes[k]
			}
		}
		if cross := crossSize(c, row); cross > lineCross {
			lineCross = cross
		}
	}

	// Second pass for cross-axis alignment, now that the line's cross
	// extent is known: slide each child down/right by its align offset.
	for _, i := range idx {
		c := children[i]
		crossPos := alignPosition(crossSize(c, row), lineCross, cs.AlignItems)
		if crossPos == 0 {
			continue
		}
		if row {
			offsetBoxTree(c, 0, crossPos)
		} else {
			offsetBoxTree(c, crossPos, 0)
		}
	}

	mainExtent := 0
	if n > 0 {
		mainExtent = positions[n-1] + mainSizes[n-1]
	}
	return lineCross, mainExtent
}

// explicitMain returns the child's explicit column-axis main size in
// cells (flex-basis, else height), or -1 when content-sized.
func explicitMain(c *LayoutBox, reference int) int {
	if c.Style == nil {
		return -1
	}
	if !c.Style.FlexBasis.IsAuto() {
		return resolveCells(c.Style.FlexBasis, reference)
	}
	if !c.Style.Height.IsAuto() {
		return resolveCells(c.Style.Height, reference)
	}
	return -1
}

// offsetBoxTree translates box and every descendant coordinate by
// (dx, dy). Line items are relative to their box's content origin and
// inline-block items live in their own local frame, so within an
// inline formatting context only the lines' absolute Y moves.
func offsetBoxTree(box *LayoutBox, dx, dy int) {
	box.Dimensions.Content.X += dx
	box.Dimensions.Content.Y += dy
	if box.Lines != nil {
		for i := range box.Lines {
			box.Lines[i].Y += dy
		}
		return
	}
	for _, c := range box.Children {
		offsetBoxTree(c, dx, dy)
	}
}

func justifyPositions(sizes []int, gap, containerMain int, justify string) []int {
	n := len(sizes)
	positions := make([]int, n)
	used := 0
	for i, s := range sizes {
		used += s
		if i > 0 {
			used += gap
		}
	}
	free := containerMain - used
	if free < 0 {
		free = 0
	}
	switch justify {
	case "flex-end":
		pos := free
		for i, s := range sizes {
			positions[i] = pos
			pos += s + gap
		}
	case "center":
		pos := free / 2
		for i, s := range sizes {
			positions[i] = pos
			pos += s + gap
		}
	case "space-between":
		if n <= 1 {
			return positions
		}
		extra := free / (n - 1)
		pos := 0
		for i, s := range sizes {
			positions[i] = pos
			pos += s + gap + extra
		}
	case "space-around":
		extra := free / n
		pos := extra / 2
		for i, s := range sizes {
			positions[i] = pos
			pos += s + gap + extra
		}
	case "space-evenly":
		extra := free / (n + 1)
		pos := extra
		for i, s := range sizes {
			positions[i] = pos
			pos += s + gap + extra
		}
	default: // flex-start
		pos := 0
		for i, s := range sizes {
			positions[i] = pos
			pos += s + gap
		}
	}
	return positions
}

// alignPosition treats baseline and stretch as flex-start.
func alignPosition(itemCross, lineCross int, alignItems string) int {
	switch alignItems {
	case "flex-end":
		return lineCross - itemCross
	case "center":
		return (lineCross - itemCross) / 2
	default:
		return 0
	}
}

func crossSize(c *LayoutBox, row bool) int {
	if row {
		return c.Dimensions.MarginBox().Height
	}
	return c.Dimensions.MarginBox().Width
}

func flexBaseSize(c *LayoutBox, row bool, containingWidth int) int {
	if c.Style != nil {
		if !c.Style.FlexBasis.IsAuto() {
			return resolveCells(c.Style.FlexBasis, containingWidth)
		}
		if row && !c.Style.Width.IsAuto() {
			return resolveCells(c.Style.Width, containingWidth)
		}
		if !row && !c.Style.Height.IsAuto() {
			return resolveCells(c.Style.Height, containingWidth)
		}
	}
	if row {
		// The measuring pass stretched the child to the container's
		// width; its base size is the max-content width instead.
		return naturalMainWidth(c)
	}
	return c.Dimensions.MarginBox().Height
}

func reverseBoxes(in []*LayoutBox) []*LayoutBox {
	out := make([]*LayoutBox, len(in))
	for i, c := range in {
		out[len(in)-1-i] = c
	}
	return out
}
