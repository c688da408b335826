package citygrid

import (
	"image"
)

// Handle is an opaque token handed out by a Renderer. We store it alongside
// the placement that created it & hand it back for activation / destruction,
// but never look inside.
type Handle any

// Renderer turns placements into something visible.
// We only have three questions;
// - make a (not yet visible) object for this placement
// - show it
// - get rid of it
type Renderer interface {
	// Instantiate creates a visual for an object with minimum corner `tile`,
	// a size x size footprint, of the given zone & asset variant.
	// Roads are given an empty variant.
	Instantiate(tile image.Point, size int, zone ZoneType, variant string) Handle

	// Activate makes a previously instantiated object visible. Called in
	// batches (see City.ActivateBatch).
	Activate(h Handle)

	// Destroy releases an object, whether or not it was ever activated.
	Destroy(h Handle)
}

// nopRenderer is used when no Renderer is given
type nopRenderer struct{}

func (nopRenderer) Instantiate(image.Point, int, ZoneType, string) Handle { return nil }
func (nopRenderer) Activate(Handle)                                        {}
func (nopRenderer) Destroy(Handle)                                         {}
