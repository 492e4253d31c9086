package h265

const (
	NALUTypePFrame    = 1
	NALUTypeIFrame    = 19
	NALUTypeIFrame2   = 20
	NALUTypeIFrame3   = 21
	NALUTypeVPS       = 32
	NALUTypeSPS       = 33
	NALUTypePPS       = 34
	NALUTypeAUD       = 35
	NALUTypePrefixSEI = 39
	NALUTypeSuffixSEI = 40
)

// NALUType for unit without start code
func NALUType(b []byte) byte {
	return (b[0] >> 1) & 0x3F
}

func IsVCL(typ byte) bool {
	return typ < NALUTypeVPS
}

func IsKeyframe(typ byte) bool {
	return typ >= 16 && typ <= 23 // BLA, IDR, CRA
}

// IsFirstSlice - first_slice_segment_in_pic_flag right after 2 bytes header
func IsFirstSlice(unit []byte) bool {
	return len(unit) > 2 && unit[2]&0x80 != 0
}

func IsParameterSet(typ byte) bool {
	return typ >= NALUTypeVPS && typ <= NALUTypePPS
}
