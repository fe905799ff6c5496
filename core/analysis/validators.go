package analysis

import "github.com/darpanintel/darpan/core"

var (
	docTypeTag  = "doctype"
	docTypeText = "invalid document type"
)

func init() {
	_ = core.Validate.RegisterValidation(docTypeTag, core.OneOfValidation(DocumentTypes...))
	core.RegisterCustomTranslation(docTypeTag, docTypeText)
}
