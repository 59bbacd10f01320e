package extension

import (
	"fmt"
	"strconv"
	"strings"
)

// Registered extension codes.
const (
	CodeIgnore              int32 = 0
	CodeDICOM               int32 = 2
	CodeAFNI                int32 = 4
	CodeComment             int32 = 6
	CodeXCEDE               int32 = 8
	CodeJimDimInfo          int32 = 10
	CodeWorkflowFwds        int32 = 12
	CodeFreeSurfer          int32 = 14
	CodePyPickle            int32 = 16
	CodeMindIdent           int32 = 18
	CodeBValue              int32 = 20
	CodeSphericalDirection  int32 = 22
	CodeDTComponent         int32 = 24
	CodeSHCDegreeOrder      int32 = 26
	CodeVoxBo               int32 = 28
	CodeCaret               int32 = 30
	CodeCIFTI               int32 = 32
	CodeVariableFrameTiming int32 = 34
	CodeEval                int32 = 38
	CodeMatlab              int32 = 40
	CodeQuantiphyse         int32 = 42
	CodeMRS                 int32 = 44
)

var codeNames = map[int32]string{
	CodeIgnore:              "ignore",
	CodeDICOM:               "dicom",
	CodeAFNI:                "afni",
	CodeComment:             "comment",
	CodeXCEDE:               "xcede",
	CodeJimDimInfo:          "jimdiminfo",
	CodeWorkflowFwds:        "workflow_fwds",
	CodeFreeSurfer:          "freesurfer",
	CodePyPickle:            "pypickle",
	CodeMindIdent:           "mind_ident",
	CodeBValue:              "b_value",
	CodeSphericalDirection:  "spherical_direction",
	CodeDTComponent:         "dt_component",
	CodeSHCDegreeOrder:      "shc_degreeorder",
	CodeVoxBo:               "voxbo",
	CodeCaret:               "caret",
	CodeCIFTI:               "cifti",
	CodeVariableFrameTiming: "variable_frame_timing",
	CodeEval:                "eval",
	CodeMatlab:              "matlab",
	CodeQuantiphyse:         "quantiphyse",
	CodeMRS:                 "mrs",
}

// CodeName returns the registered name of an ecode or "unknown".
func CodeName(code int32) string {
	if name, found := codeNames[code]; found {
		return name
	}
	return "unknown"
}

// ParseCode accepts a registered name or a decimal ecode.
func ParseCode(s string) (int32, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if code, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int32(code), nil
	}
	for code, name := range codeNames {
		if name == s {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown extension code %q", s)
}
