package models

// Event is a client-defined document inside a league. Only ID is owned by the
// service.
type Event struct {
	ID     string
	Fields Fields

	FieldsJSON string
}

// PrepareForDB marshals the event fields into their storage form.
func (e *Event) PrepareForDB() error {
	s, err := e.Fields.Without(KeyID, KeyMongoID).Encode()
	if err != nil {
		return err
	}
	e.FieldsJSON = s
	return nil
}

// PrepareForAPI unmarshals the stored event fields.
func (e *Event) PrepareForAPI() error {
	f, err := DecodeFields(e.FieldsJSON)
	if err != nil {
		return err
	}
	e.Fields = f
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	return flatten(e.Fields, map[string]any{KeyID: e.ID})
}
