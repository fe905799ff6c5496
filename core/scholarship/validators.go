package scholarship

import "github.com/darpanintel/darpan/core"

var (
	studyLevelTag  = "studylevel"
	studyLevelText = "invalid study level"
)

func init() {
	_ = core.Validate.RegisterValidation(studyLevelTag, core.OneOfValidation(StudyLevels...))
	core.RegisterCustomTranslation(studyLevelTag, studyLevelText)
}
