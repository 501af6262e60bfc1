package models

// Gender is the self-reported gender category of a member
type Gender string

const (
	// GenderMale identifies a member as male
	GenderMale Gender = "male"

	// GenderFemale identifies a member as female
	GenderFemale Gender = "female"

	// GenderOther identifies a member as another gender
	GenderOther Gender = "other"

	// GenderUndisclosed identifies a member who chose not to answer
	GenderUndisclosed Gender = "prefer-not-to-say"
)

// Genders lists every category in a fixed order
var Genders = []Gender{GenderMale, GenderFemale, GenderOther, GenderUndisclosed}

// Member represents a participant inside a single session
type Member struct {
	// ID is unique within the session, assigned from the connection
	ID string `json:"id"`

	// Name is the display name of the member
	Name string `json:"name"`

	// College is the organization label used for diversity grouping.
	// Free text supplied by the member, may be empty.
	College string `json:"college"`

	// Gender is the member's self-reported gender category
	Gender Gender `json:"gender"`

	// ConnID is the transport connection that introduced this member
	ConnID string `json:"connId"`
}
