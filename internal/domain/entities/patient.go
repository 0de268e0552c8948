package entities

// Gender represents a patient's gender
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// NormalizeGender maps free-form input to one of the enumerated values.
// Unrecognized or missing values default to Male, the first option.
func NormalizeGender(value string) Gender {
	switch Gender(value) {
	case GenderMale, GenderFemale, GenderOther:
		return Gender(value)
	default:
		return GenderMale
	}
}

// PatientForm holds the report generation form fields. All fields are free
// text except Gender, which resolves to one of the enumerated values.
type PatientForm struct {
	Name         string `json:"name"`
	Gender       Gender `json:"gender"`
	Age          string `json:"age"`
	BloodGroup   string `json:"blood_group"`
	Height       string `json:"height"`
	Weight       string `json:"weight"`
	Phone        string `json:"phone"`
	DoctorName   string `json:"doctor_name"`
	Radiologist  string `json:"radiologist_name"`
	ImageBytes   []byte `json:"-"`
	FilenameStem string `json:"filename_stem"`
}
