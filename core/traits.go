package core

// Frozen protocol tables. Changing the order or membership of any of these
// slices is a breaking protocol change: a punk's identity is a pure
// function of (type, background index, attribute bitmap), so renumbering
// an entry silently mints a different punk from the same bytes.
//
// Background is a single table shared across all five types; attributes
// are per-type (<=32 entries each).

// backgroundTable is the frozen, version-1 background palette.
var backgroundTable = [...]string{
	"Gray", "Blue", "Teal", "Yellow", "Orange", "Green", "Purple", "Pink",
	"Red", "Brown", "Black", "White", "Cyan", "Maroon", "Navy", "Olive",
}

// BackgroundName returns the frozen name for a background index, or "" if
// idx is out of range.
func BackgroundName(idx uint8) string {
	if int(idx) >= len(backgroundTable) {
		return ""
	}
	return backgroundTable[idx]
}

// BackgroundCount is the number of defined backgrounds.
func BackgroundCount() int { return len(backgroundTable) }

// attributeTables holds, per PunkType, the frozen attribute names indexed by
// bit position in the 32-bit attribute bitmap. Index 3 ("Alien") leads with
// the canonical Alien Cap / Laser Eyes / UFO trio so that a bitmap of 0b111
// round-trips to exactly that set.
var attributeTables = [typeCount][]string{
	TypeMale: {
		"Stubble", "Mustache", "Beard", "Cap", "Headband", "Earring",
		"Cigarette", "Glasses", "Mole", "Vape", "Do-rag", "Hoodie",
	},
	TypeFemale: {
		"Blonde Bob", "Straight Hair", "Hot Lipstick", "Earring", "Tiara",
		"Choker", "Blush", "Wild Hair", "Cap", "Glasses", "Mole",
	},
	TypeZombie: {
		"Rotting Flesh", "Exposed Jaw", "Green Eyes", "Patch", "Cap",
		"Stitched Wound", "Frown", "Headband",
	},
	TypeApe: {
		"Fur Tuft", "Bored Eyes", "Gold Chain", "Bandana", "Cigar",
		"Cap", "Earring", "Safari Hat",
	},
	TypeAlien: {
		"Alien Cap", "Laser Eyes", "UFO", "Antenna", "Third Eye",
		"Hypno Gaze", "Mind Ray", "Tractor Beam",
	},
}

// AttributeTable returns the frozen attribute names for t, or nil if t is
// not a valid type.
func AttributeTable(t PunkType) []string {
	if !t.Valid() {
		return nil
	}
	return attributeTables[t]
}

// AttributeName returns the frozen name of attribute bit idx for type t, or
// "" if it does not exist.
func AttributeName(t PunkType, idx uint8) string {
	tbl := AttributeTable(t)
	if tbl == nil || int(idx) >= len(tbl) {
		return ""
	}
	return tbl[idx]
}
