// Package types defines the entity types, collaborator interfaces, and
// standard errors shared by the staybook enquiry engine.
//
// The enquiry record (Enquiry, Date, Errors), availability data
// (DayAvailability, Calendar, CellRender) and traveller records (Traveller)
// live here so that the engine packages and the storage and transport
// adapters agree on one vocabulary.
package types
