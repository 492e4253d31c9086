package h264

const (
	NALUTypePFrame = 1 // Coded slice of a non-IDR picture
	NALUTypeIFrame = 5 // Coded slice of an IDR picture
	NALUTypeSEI    = 6 // Supplemental enhancement information (SEI)
	NALUTypeSPS    = 7 // Sequence parameter set
	NALUTypePPS    = 8 // Picture parameter set
	NALUTypeAUD    = 9 // Access unit delimiter
)

// NALUType for unit without start code
func NALUType(b []byte) byte {
	return b[0] & 0x1F
}

func IsVCL(typ byte) bool {
	return typ >= NALUTypePFrame && typ <= NALUTypeIFrame
}

// IsFirstSlice - first_mb_in_slice == 0, so ue(v) starts with bit 1
func IsFirstSlice(unit []byte) bool {
	return len(unit) > 1 && unit[1]&0x80 != 0
}

func IsParameterSet(typ byte) bool {
	return typ == NALUTypeSPS || typ == NALUTypePPS
}
