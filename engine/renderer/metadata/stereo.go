package metadata

/** @brief Which viewpoint a geometry pass renders for. */
type StereoEye int

const (
	StereoEyeCenter StereoEye = iota
	StereoEyeLeft
	StereoEyeRight
)

func (e StereoEye) String() string {
	switch e {
	case StereoEyeLeft:
		return "left"
	case StereoEyeRight:
		return "right"
	default:
		return "center"
	}
}

/** @brief How the composition pass presents the eye images. */
type StereoMode int

const (
	StereoModeNone StereoMode = iota
	StereoModeCrossEye
	StereoModeCybermaxx
	StereoModeAnaglyph
	StereoModeDepth
	StereoModeNewsprint
	StereoModeCount
)

var stereoModeNames = [StereoModeCount]string{
	"none", "crosseye", "cybermaxx", "anaglyph", "depth", "newsprint",
}

func (m StereoMode) String() string {
	if m < 0 || m >= StereoModeCount {
		return "unknown"
	}
	return stereoModeNames[m]
}

// Next returns the following mode, wrapping from the last one back to StereoModeNone.
func (m StereoMode) Next() StereoMode {
	return (m + 1) % StereoModeCount
}

// IsStereo reports whether the mode renders separate left and right eye images.
func (m StereoMode) IsStereo() bool {
	return m != StereoModeNone
}

// ParseStereoMode maps a name back to its mode.
func ParseStereoMode(name string) (StereoMode, bool) {
	for i, n := range stereoModeNames {
		if n == name {
			return StereoMode(i), true
		}
	}
	return StereoModeNone, false
}
