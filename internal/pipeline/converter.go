package pipeline

// ColorConverter performs the GPU-resident BGRA -> NV12 conversion via
// the D3D11 video processor block (ID3D11VideoProcessor Blt). Convert
// returns the converter's own persistent output surface — it is a
// standalone, separately-lifecycled component (spec section 6's
// "Converter API surface"), not part of EncoderSession.Submit. Callers
// hold onto the returned surface and pass it into Submit, which copies
// it into a pool slot itself.
type ColorConverter interface {
	Convert(src BGRASurface) (NV12Surface, error)
	Close() error
}
