package model

// Field messages returned inside validation.Errors.  They mirror the wording
// clients of the API already depend on.
const (
	MsgRequired      = "This field is required."
	MsgBlank         = "This field may not be blank."
	MsgNull          = "This field may not be null."
	MsgReadOnly      = "This field is read-only."
	MsgInvalidEmail  = "Enter a valid email address."
	MsgAddressObject = "Address must be an object"
)
