package deck

import "fmt"

// ContentZone is a named rectangular region of a layout into which one
// piece of generated content must fit. Zones may carry child sub-zones
// (e.g. three equal columns); sub-zones are laid out side by side, so
// their widths sum within the parent while each height stays within the
// parent height.
type ContentZone struct {
	Name     string        `json:"name"`               // Zone identifier within the layout
	Width    int           `json:"width"`              // Pixel width, > 0
	Height   int           `json:"height"`             // Pixel height, > 0
	X        int           `json:"x"`                  // Horizontal offset within the layout
	Y        int           `json:"y"`                  // Vertical offset within the layout
	Accepts  []ContentKind `json:"accepts"`            // Content kinds this zone renders
	SubZones []ContentZone `json:"subzones,omitempty"` // Child zones for split layouts
}

// Validate checks the zone geometry, recursing into sub-zones.
func (z *ContentZone) Validate() error {
	if z.Name == "" {
		return fmt.Errorf("zone name cannot be empty")
	}

	if z.Width <= 0 {
		return fmt.Errorf("zone %q: width must be > 0, got %d", z.Name, z.Width)
	}

	if z.Height <= 0 {
		return fmt.Errorf("zone %q: height must be > 0, got %d", z.Name, z.Height)
	}

	for _, kind := range z.Accepts {
		if err := kind.Validate(); err != nil {
			return fmt.Errorf("zone %q: %w", z.Name, err)
		}
	}

	widthSum := 0
	for i := range z.SubZones {
		sub := &z.SubZones[i]
		if err := sub.Validate(); err != nil {
			return err
		}
		if sub.Height > z.Height {
			return fmt.Errorf("zone %q: sub-zone %q height %d exceeds parent height %d",
				z.Name, sub.Name, sub.Height, z.Height)
		}
		widthSum += sub.Width
	}

	if widthSum > z.Width {
		return fmt.Errorf("zone %q: sub-zone widths sum to %d, exceeding parent width %d",
			z.Name, widthSum, z.Width)
	}

	return nil
}

// AcceptsKind reports whether this zone (or any sub-zone) renders the
// given content kind.
func (z *ContentZone) AcceptsKind(kind ContentKind) bool {
	for _, k := range z.Accepts {
		if k == kind {
			return true
		}
	}
	for i := range z.SubZones {
		if z.SubZones[i].AcceptsKind(kind) {
			return true
		}
	}
	return false
}

// SlideTypeVariant is one slide-type + variant combination a layout
// declares support for.
type SlideTypeVariant struct {
	Kind    ContentKind `json:"kind"`
	Variant string      `json:"variant"`
}

// LayoutSpec is a layout offered by the layout collaborator, carrying the
// combinations it supports and its full content-zone tree.
type LayoutSpec struct {
	ID       string             `json:"id"`       // Layout identifier
	Supports []SlideTypeVariant `json:"supports"` // Slide-type+variant combinations this layout renders
	Zones    []ContentZone      `json:"zones"`    // Zone tree with pixel geometry
}

// Validate checks if the LayoutSpec has valid field values.
func (l *LayoutSpec) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("layout ID cannot be empty")
	}

	if len(l.Zones) == 0 {
		return fmt.Errorf("layout %q declares no zones", l.ID)
	}

	for i := range l.Zones {
		if err := l.Zones[i].Validate(); err != nil {
			return fmt.Errorf("layout %q: %w", l.ID, err)
		}
	}

	for _, sv := range l.Supports {
		if err := sv.Kind.Validate(); err != nil {
			return fmt.Errorf("layout %q: %w", l.ID, err)
		}
	}

	return nil
}

// SupportsKind reports whether the layout declares support for the given
// content kind under any variant.
func (l *LayoutSpec) SupportsKind(kind ContentKind) bool {
	for _, sv := range l.Supports {
		if sv.Kind == kind {
			return true
		}
	}
	return false
}

// SupportsKindVariant reports whether the layout declares support for the
// exact kind+variant combination. A layout entry with an empty variant
// matches every variant of that kind.
func (l *LayoutSpec) SupportsKindVariant(kind ContentKind, variant string) bool {
	for _, sv := range l.Supports {
		if sv.Kind == kind && (sv.Variant == "" || sv.Variant == variant) {
			return true
		}
	}
	return false
}

// ZoneForKind returns the first zone in the tree that accepts the given
// content kind, or nil if no zone does.
func (l *LayoutSpec) ZoneForKind(kind ContentKind) *ContentZone {
	for i := range l.Zones {
		if zone := zoneForKind(&l.Zones[i], kind); zone != nil {
			return zone
		}
	}
	return nil
}

func zoneForKind(z *ContentZone, kind ContentKind) *ContentZone {
	for _, k := range z.Accepts {
		if k == kind {
			return z
		}
	}
	for i := range z.SubZones {
		if zone := zoneForKind(&z.SubZones[i], kind); zone != nil {
			return zone
		}
	}
	return nil
}

// SpaceNeed is the space a content variant declares it requires. Split
// content carries one sub-need per expected sub-zone, matched in order.
type SpaceNeed struct {
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	SubNeeds []SpaceNeed `json:"subneeds,omitempty"`
}

// FitsZone reports whether this need fits the given zone: width and
// height within the zone's, and every sub-need within its positional
// sub-zone. A need with more sub-needs than the zone has sub-zones does
// not fit.
func (n *SpaceNeed) FitsZone(zone *ContentZone) bool {
	if n.Width > zone.Width || n.Height > zone.Height {
		return false
	}

	if len(n.SubNeeds) > len(zone.SubZones) {
		return false
	}

	for i := range n.SubNeeds {
		if !n.SubNeeds[i].FitsZone(&zone.SubZones[i]) {
			return false
		}
	}

	return true
}
