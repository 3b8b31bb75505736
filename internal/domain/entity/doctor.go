package entity

// Doctor is one entry of the static provider directory. Doctors are
// configuration data, not a stored table: the catalog is built once at
// startup and injected into the usecases that need it.
type Doctor struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Shift          string `json:"shift"`
}

// DoctorCatalog is an immutable lookup over the configured doctors
type DoctorCatalog struct {
	doctors []Doctor
	byName  map[string]Doctor
}

// NewDoctorCatalog builds a catalog from a doctor list, copying the input
func NewDoctorCatalog(doctors []Doctor) *DoctorCatalog {
	list := make([]Doctor, len(doctors))
	copy(list, doctors)

	byName := make(map[string]Doctor, len(list))
	for _, d := range list {
		byName[d.Name] = d
	}

	return &DoctorCatalog{doctors: list, byName: byName}
}

// All returns the configured doctors in directory order
func (c *DoctorCatalog) All() []Doctor {
	list := make([]Doctor, len(c.doctors))
	copy(list, c.doctors)
	return list
}

// FindByName looks a doctor up by exact name match
func (c *DoctorCatalog) FindByName(name string) (Doctor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// DefaultDoctors is the built-in provider directory of the clinic
var DefaultDoctors = []Doctor{
	{Name: "Dr. Naresh", Specialization: "Cardiology", Shift: "12:00 AM - 3:00 AM"},
	{Name: "Dr. Suresh", Specialization: "Cardiology", Shift: "3:00 AM - 6:00 AM"},
	{Name: "Dr. Siva", Specialization: "Orthopedics", Shift: "6:00 AM - 9:00 AM"},
	{Name: "Dr. Balu", Specialization: "Orthopedics", Shift: "9:00 AM - 12:00 PM"},
	{Name: "Dr. Raju", Specialization: "Neurology", Shift: "12:00 PM - 3:00 PM"},
	{Name: "Dr. Harsha", Specialization: "Neurology", Shift: "3:00 PM - 6:00 PM"},
	{Name: "Dr. Santhosh", Specialization: "Pediatrics", Shift: "6:00 PM - 9:00 PM"},
	{Name: "Dr. Mahesh", Specialization: "Pediatrics", Shift: "9:00 PM - 12:00 AM"},
}
