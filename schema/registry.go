package schema

import (
	"sort"

	c "github.com/relloyd/obspipe/constants"
)

// registry holds the schema of every table the pipeline writes.
// It is never modified after package initialisation.
var registry = map[string]TableSchema{
	c.TableObservationSummary: {
		Name: c.TableObservationSummary,
		Columns: []Column{
			{Name: "site_id", Type: Integer},
			{Name: "hco_id", Type: Integer, Nullable: true},
			{Name: "program_id", Type: Integer},
			{Name: "site_name", Type: String},
			{Name: "program_name", Type: String},
			{Name: "has_active_license", Type: Boolean},
			{Name: "observations_found", Type: Integer},
			{Name: "updated_from", Type: Timestamp},
			{Name: "updated_thru", Type: Timestamp},
		},
	},
	c.TableHcoDetails: {
		Name: c.TableHcoDetails,
		Columns: []Column{
			{Name: "hco_id", Type: Integer},
			{Name: "site_id", Type: Integer},
			{Name: "site_name", Type: String},
			{Name: "zip", Type: String},
		},
	},
	c.TablePrograms: {
		Name: c.TablePrograms,
		Columns: []Column{
			{Name: "program_id", Type: Integer},
			{Name: "program_name", Type: String},
		},
	},
	c.TableTracerDetails: {
		Name: c.TableTracerDetails,
		Columns: []Column{
			{Name: "site_id", Type: Integer},
			{Name: "program_id", Type: Integer},
			{Name: "tracer_id", Type: Integer},
			{Name: "category_name", Type: String},
			{Name: "tracer_name", Type: String},
			{Name: "tracer_status", Type: String},
			{Name: "tracer_type", Type: String},
			{Name: "is_locked_system_tracer", Type: Boolean},
			{Name: "tracer_instructions", Type: String},
			{Name: "updated_by_fullname", Type: String},
			{Name: "updated_by_email", Type: String},
		},
	},
	c.TableObservationHeaders: {
		Name: c.TableObservationHeaders,
		Columns: []Column{
			{Name: "tracer_id", Type: Integer},
			{Name: "observation_id", Type: Integer},
			{Name: "observation_title", Type: String},
			{Name: "contracted_service", Type: String},
			{Name: "survey_team", Type: String},
			{Name: "staff_interviewed", Type: String},
			{Name: "medical_staff_involved", Type: String},
			{Name: "location", Type: String},
			{Name: "equipment_observed", Type: String},
			{Name: "unique_identifier", Type: String},
			{Name: "total_completed_observations", Type: Integer},
			{Name: "observation_note", Type: String},
			{Name: "observation_status", Type: String},
			{Name: "department", Type: String},
			{Name: "department_level_2", Type: String},
			{Name: "department_level_3", Type: String},
			{Name: "observation_date", Type: Timestamp},
			{Name: "last_updated", Type: Timestamp},
			{Name: "updated_by_fullname", Type: String},
			{Name: "updated_by_email", Type: String},
		},
	},
	c.TableObservationDetails: {
		Name: c.TableObservationDetails,
		Columns: []Column{
			{Name: "observation_id", Type: Integer},
			{Name: "question_id", Type: Integer},
			{Name: "additional_information", Type: String},
			{Name: "multiple_choices", Type: String},
			{Name: "numerator", Type: Integer},
			{Name: "denominator", Type: Integer},
			{Name: "is_not_applicable", Type: Boolean},
			{Name: "question_response", Type: String},
		},
	},
	c.TableObservationNotes: {
		Name: c.TableObservationNotes,
		Columns: []Column{
			{Name: "question_id", Type: Integer},
			{Name: "question_note_id", Type: Integer},
			{Name: "observation_id", Type: Integer},
			{Name: "question_note", Type: String},
			{Name: "last_updated", Type: Timestamp},
			{Name: "updated_by_full_name", Type: String},
			{Name: "updated_by_email", Type: String},
		},
	},
}

// SchemaFor returns the schema registered for table.
func SchemaFor(table string) (TableSchema, error) {
	s, ok := registry[table]
	if !ok {
		return TableSchema{}, SchemaNotFoundError{Table: table}
	}
	return s, nil
}

// MustSchemaFor returns the schema registered for table and panics if there is none.
func MustSchemaFor(table string) TableSchema {
	s, err := SchemaFor(table)
	if err != nil {
		panic(err)
	}
	return s
}

// Tables returns the registered table names, summary first then detail tables in load order.
func Tables() []string {
	retval := make([]string, 0, len(registry))
	retval = append(retval, c.TableObservationSummary)
	retval = append(retval, c.DetailCollections...)
	if len(retval) != len(registry) { // if a table was registered without being listed above...
		extra := make([]string, 0)
		for k := range registry {
			if !contains(retval, k) {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		retval = append(retval, extra...)
	}
	return retval
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
