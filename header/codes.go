package header

import "fmt"

// XFormCode describes the coordinate system of a qform or sform.
type XFormCode int16

const (
	XFormUnknown     XFormCode = 0
	XFormScannerAnat XFormCode = 1
	XFormAlignedAnat XFormCode = 2
	XFormTalairach   XFormCode = 3
	XFormMNI152      XFormCode = 4
	XFormTemplate    XFormCode = 5
)

var xformNames = map[XFormCode]string{
	XFormUnknown:     "unknown",
	XFormScannerAnat: "scanner_anat",
	XFormAlignedAnat: "aligned_anat",
	XFormTalairach:   "talairach",
	XFormMNI152:      "mni_152",
	XFormTemplate:    "template_other",
}

func (c XFormCode) String() string {
	if name, found := xformNames[c]; found {
		return name
	}
	return fmt.Sprintf("xform(%d)", int16(c))
}

// SpaceUnits is the low 3 bits of xyzt_units.
type SpaceUnits uint8

const (
	UnitsUnknown SpaceUnits = 0
	UnitsMeter   SpaceUnits = 1
	UnitsMM      SpaceUnits = 2
	UnitsMicron  SpaceUnits = 3
)

func (u SpaceUnits) String() string {
	switch u {
	case UnitsUnknown:
		return "unknown"
	case UnitsMeter:
		return "m"
	case UnitsMM:
		return "mm"
	case UnitsMicron:
		return "um"
	default:
		return fmt.Sprintf("space(%d)", uint8(u))
	}
}

// TimeUnits is bits 3-5 of xyzt_units.
type TimeUnits uint8

const (
	UnitsTimeUnknown TimeUnits = 0
	UnitsSec         TimeUnits = 8
	UnitsMsec        TimeUnits = 16
	UnitsUsec        TimeUnits = 24
	UnitsHz          TimeUnits = 32
	UnitsPPM         TimeUnits = 40
	UnitsRads        TimeUnits = 48
)

func (u TimeUnits) String() string {
	switch u {
	case UnitsTimeUnknown:
		return "unknown"
	case UnitsSec:
		return "s"
	case UnitsMsec:
		return "ms"
	case UnitsUsec:
		return "us"
	case UnitsHz:
		return "Hz"
	case UnitsPPM:
		return "ppm"
	case UnitsRads:
		return "rad/s"
	default:
		return fmt.Sprintf("time(%d)", uint8(u))
	}
}

// SliceCode is the slice acquisition order.
type SliceCode uint8

const (
	SliceUnknown SliceCode = iota
	SliceSeqInc
	SliceSeqDec
	SliceAltInc
	SliceAltDec
	SliceAltInc2
	SliceAltDec2
)

var sliceNames = []string{"unknown", "seq_inc", "seq_dec", "alt_inc", "alt_dec", "alt_inc2", "alt_dec2"}

func (c SliceCode) String() string {
	if int(c) < len(sliceNames) {
		return sliceNames[c]
	}
	return fmt.Sprintf("slice(%d)", uint8(c))
}

// IntentCode tells how voxel values should be interpreted.  The engine only records it.
type IntentCode int16

const (
	IntentNone       IntentCode = 0
	IntentCorrel     IntentCode = 2
	IntentTTest      IntentCode = 3
	IntentFTest      IntentCode = 4
	IntentZScore     IntentCode = 5
	IntentChiSq      IntentCode = 6
	IntentBeta       IntentCode = 7
	IntentBinom      IntentCode = 8
	IntentGamma      IntentCode = 9
	IntentPoisson    IntentCode = 10
	IntentNormal     IntentCode = 11
	IntentFTestNonc  IntentCode = 12
	IntentChiSqNonc  IntentCode = 13
	IntentLogistic   IntentCode = 14
	IntentLaplace    IntentCode = 15
	IntentUniform    IntentCode = 16
	IntentTTestNonc  IntentCode = 17
	IntentWeibull    IntentCode = 18
	IntentChi        IntentCode = 19
	IntentInvGauss   IntentCode = 20
	IntentExtVal     IntentCode = 21
	IntentPVal       IntentCode = 22
	IntentLogPVal    IntentCode = 23
	IntentLog10PVal  IntentCode = 24
	IntentEstimate   IntentCode = 1001
	IntentLabel      IntentCode = 1002
	IntentNeuroName  IntentCode = 1003
	IntentGenMatrix  IntentCode = 1004
	IntentSymMatrix  IntentCode = 1005
	IntentDispVect   IntentCode = 1006
	IntentVector     IntentCode = 1007
	IntentPointSet   IntentCode = 1008
	IntentTriangle   IntentCode = 1009
	IntentQuaternion IntentCode = 1010
	IntentDimless    IntentCode = 1011
	IntentTimeSeries IntentCode = 2001
	IntentNodeIndex  IntentCode = 2002
	IntentRGBVector  IntentCode = 2003
	IntentRGBAVector IntentCode = 2004
	IntentShape      IntentCode = 2005
)

var intentNames = map[IntentCode]string{
	IntentNone:       "none",
	IntentCorrel:     "correlation",
	IntentTTest:      "t-test",
	IntentFTest:      "F-test",
	IntentZScore:     "z-score",
	IntentChiSq:      "chi-squared",
	IntentBeta:       "beta",
	IntentBinom:      "binomial",
	IntentGamma:      "gamma",
	IntentPoisson:    "poisson",
	IntentNormal:     "normal",
	IntentFTestNonc:  "F-test noncentral",
	IntentChiSqNonc:  "chi-squared noncentral",
	IntentLogistic:   "logistic",
	IntentLaplace:    "laplace",
	IntentUniform:    "uniform",
	IntentTTestNonc:  "t-test noncentral",
	IntentWeibull:    "weibull",
	IntentChi:        "chi",
	IntentInvGauss:   "inverse gaussian",
	IntentExtVal:     "extreme value",
	IntentPVal:       "p-value",
	IntentLogPVal:    "log p-value",
	IntentLog10PVal:  "log10 p-value",
	IntentEstimate:   "estimate",
	IntentLabel:      "label index",
	IntentNeuroName:  "NeuroNames index",
	IntentGenMatrix:  "general matrix",
	IntentSymMatrix:  "symmetric matrix",
	IntentDispVect:   "displacement vector",
	IntentVector:     "vector",
	IntentPointSet:   "point set",
	IntentTriangle:   "triangle",
	IntentQuaternion: "quaternion",
	IntentDimless:    "dimensionless",
	IntentTimeSeries: "time series",
	IntentNodeIndex:  "node index",
	IntentRGBVector:  "RGB vector",
	IntentRGBAVector: "RGBA vector",
	IntentShape:      "shape",
}

func (c IntentCode) String() string {
	if name, found := intentNames[c]; found {
		return name
	}
	return fmt.Sprintf("intent(%d)", int16(c))
}
