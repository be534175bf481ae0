package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeColumnLayout() LayoutSpec {
	return LayoutSpec{
		ID: "three-column",
		Supports: []SlideTypeVariant{
			{Kind: KindText, Variant: "bullets"},
			{Kind: KindChart, Variant: ""},
		},
		Zones: []ContentZone{
			{
				Name:    "header",
				Width:   1760,
				Height:  120,
				X:       80,
				Y:       40,
				Accepts: []ContentKind{KindText},
			},
			{
				Name:   "body",
				Width:  1760,
				Height: 760,
				X:      80,
				Y:      200,
				SubZones: []ContentZone{
					{Name: "col-1", Width: 560, Height: 760, Accepts: []ContentKind{KindChart}},
					{Name: "col-2", Width: 560, Height: 760, X: 600, Accepts: []ContentKind{KindChart}},
					{Name: "col-3", Width: 560, Height: 760, X: 1200, Accepts: []ContentKind{KindDiagram}},
				},
			},
		},
	}
}

func TestContentZoneValidation(t *testing.T) {
	t.Run("valid zone tree passes", func(t *testing.T) {
		layout := threeColumnLayout()
		for i := range layout.Zones {
			assert.NoError(t, layout.Zones[i].Validate())
		}
	})

	t.Run("zero width fails", func(t *testing.T) {
		zone := ContentZone{Name: "main", Width: 0, Height: 880}
		err := zone.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "width must be > 0")
	})

	t.Run("sub-zone widths exceeding parent fail", func(t *testing.T) {
		zone := ContentZone{
			Name: "body", Width: 1000, Height: 700,
			SubZones: []ContentZone{
				{Name: "left", Width: 600, Height: 700},
				{Name: "right", Width: 600, Height: 700},
			},
		}
		err := zone.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sub-zone widths sum to 1200")
	})

	t.Run("sub-zone taller than parent fails", func(t *testing.T) {
		zone := ContentZone{
			Name: "body", Width: 1000, Height: 700,
			SubZones: []ContentZone{
				{Name: "left", Width: 400, Height: 800},
			},
		}
		err := zone.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds parent height")
	})

	t.Run("accepts kind recurses into sub-zones", func(t *testing.T) {
		layout := threeColumnLayout()
		body := layout.Zones[1]
		assert.True(t, body.AcceptsKind(KindChart))
		assert.True(t, body.AcceptsKind(KindDiagram))
		assert.False(t, body.AcceptsKind(KindInfographic))
	})
}

func TestLayoutSpecValidation(t *testing.T) {
	t.Run("valid layout passes", func(t *testing.T) {
		layout := threeColumnLayout()
		assert.NoError(t, layout.Validate())
	})

	t.Run("layout with no zones fails", func(t *testing.T) {
		layout := LayoutSpec{ID: "empty"}
		err := layout.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "declares no zones")
	})

	t.Run("layout with invalid zone fails", func(t *testing.T) {
		layout := threeColumnLayout()
		layout.Zones[0].Width = -1
		assert.Error(t, layout.Validate())
	})
}

func TestLayoutSupportMatching(t *testing.T) {
	layout := threeColumnLayout()

	t.Run("exact kind and variant match", func(t *testing.T) {
		assert.True(t, layout.SupportsKindVariant(KindText, "bullets"))
	})

	t.Run("different variant does not match", func(t *testing.T) {
		assert.False(t, layout.SupportsKindVariant(KindText, "prose"))
	})

	t.Run("empty variant entry matches every variant", func(t *testing.T) {
		assert.True(t, layout.SupportsKindVariant(KindChart, "bar"))
		assert.True(t, layout.SupportsKindVariant(KindChart, "pie"))
	})

	t.Run("unsupported kind does not match", func(t *testing.T) {
		assert.False(t, layout.SupportsKindVariant(KindInfographic, "timeline"))
	})

	t.Run("supports kind ignores variant", func(t *testing.T) {
		assert.True(t, layout.SupportsKind(KindText))
		assert.False(t, layout.SupportsKind(KindDiagram))
	})
}

func TestZoneForKind(t *testing.T) {
	layout := threeColumnLayout()

	t.Run("top-level zone wins", func(t *testing.T) {
		zone := layout.ZoneForKind(KindText)
		require.NotNil(t, zone)
		assert.Equal(t, "header", zone.Name)
	})

	t.Run("descends into sub-zones", func(t *testing.T) {
		zone := layout.ZoneForKind(KindDiagram)
		require.NotNil(t, zone)
		assert.Equal(t, "col-3", zone.Name)
	})

	t.Run("nil when no zone accepts the kind", func(t *testing.T) {
		assert.Nil(t, layout.ZoneForKind(KindInfographic))
	})
}

func TestSpaceNeedFitsZone(t *testing.T) {
	zone := ContentZone{
		Name: "body", Width: 1260, Height: 720,
		SubZones: []ContentZone{
			{Name: "left", Width: 600, Height: 720},
			{Name: "right", Width: 600, Height: 720},
		},
	}

	tests := []struct {
		name string
		need SpaceNeed
		fits bool
	}{
		{"smaller need fits", SpaceNeed{Width: 1200, Height: 700}, true},
		{"exact need fits", SpaceNeed{Width: 1260, Height: 720}, true},
		{"too wide does not fit", SpaceNeed{Width: 1800, Height: 700}, false},
		{"too tall does not fit", SpaceNeed{Width: 1200, Height: 800}, false},
		{
			"sub-needs fit positional sub-zones",
			SpaceNeed{Width: 1260, Height: 720, SubNeeds: []SpaceNeed{
				{Width: 550, Height: 700},
				{Width: 580, Height: 720},
			}},
			true,
		},
		{
			"oversized sub-need does not fit",
			SpaceNeed{Width: 1260, Height: 720, SubNeeds: []SpaceNeed{
				{Width: 650, Height: 700},
			}},
			false,
		},
		{
			"more sub-needs than sub-zones does not fit",
			SpaceNeed{Width: 1260, Height: 720, SubNeeds: []SpaceNeed{
				{Width: 400, Height: 700},
				{Width: 400, Height: 700},
				{Width: 400, Height: 700},
			}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fits, tt.need.FitsZone(&zone))
		})
	}
}
