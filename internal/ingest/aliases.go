package ingest

import (
	"fmt"
	"strings"
)

// FieldKey names a canonical ticket field that imported columns map onto.
type FieldKey string

const (
	FieldTicketID     FieldKey = "ticketId"
	FieldProduct      FieldKey = "product"
	FieldLotCode      FieldKey = "lotCode"
	FieldCreatedDate  FieldKey = "createdDate"
	FieldTimeStamp    FieldKey = "timeStamp"
	FieldDescription  FieldKey = "description"
	FieldStatus       FieldKey = "status"
	FieldStore        FieldKey = "store"
	FieldEmail        FieldKey = "email"
	FieldExpiration   FieldKey = "expiration"
	FieldSeverity     FieldKey = "severity"
	FieldConsumerName FieldKey = "consumerName"
)

// CanonicalFields lists every field key in resolution order.
var CanonicalFields = []FieldKey{
	FieldTicketID,
	FieldProduct,
	FieldLotCode,
	FieldCreatedDate,
	FieldTimeStamp,
	FieldDescription,
	FieldStatus,
	FieldStore,
	FieldEmail,
	FieldExpiration,
	FieldSeverity,
	FieldConsumerName,
}

// AliasTable maps each canonical field to its accepted header spellings in
// priority order. Marker is the token that identifies the real header row
// when an export has title rows above it.
type AliasTable struct {
	Marker  string
	Aliases map[FieldKey][]string
}

// DefaultAliasTable returns the built-in header vocabulary.
func DefaultAliasTable() AliasTable {
	return AliasTable{
		Marker: "case id",
		Aliases: map[FieldKey][]string{
			FieldTicketID:     {"Case ID (unique)", "Case ID", "Ticket ID"},
			FieldProduct:      {"Product", "SKU", "Line"},
			FieldLotCode:      {"Lot #", "Lot", "Lot Number"},
			FieldCreatedDate:  {"Contact Date", "Created At", "Date"},
			FieldTimeStamp:    {"Time Stamp", "Time"},
			FieldDescription:  {"Case Description", "Description", "Notes"},
			FieldStatus:       {"Case Status", "Status"},
			FieldStore:        {"Store", "Purchase Location", "Retailer"},
			FieldEmail:        {"Email", "Consumer Email", "Customer Email"},
			FieldExpiration:   {"Expiration", "Expiration Date", "Expiry", "Best By"},
			FieldSeverity:     {"Severity", "Level", "Priority"},
			FieldConsumerName: {"Consumer Name", "Customer Name", "Name"},
		},
	}
}

// Merge returns a copy of a with the alias lists in override replacing the
// corresponding fields, and a non-empty override marker replacing Marker.
func (a AliasTable) Merge(override AliasTable) AliasTable {
	out := AliasTable{Marker: a.Marker, Aliases: make(map[FieldKey][]string, len(a.Aliases))}
	for k, v := range a.Aliases {
		out.Aliases[k] = append([]string(nil), v...)
	}
	for k, v := range override.Aliases {
		out.Aliases[k] = append([]string(nil), v...)
	}
	if strings.TrimSpace(override.Marker) != "" {
		out.Marker = override.Marker
	}
	return out
}

// Validate checks that only canonical fields are named, the identity field
// has aliases, and no alias normalizes to an empty string.
func (a AliasTable) Validate() error {
	known := make(map[FieldKey]struct{}, len(CanonicalFields))
	for _, f := range CanonicalFields {
		known[f] = struct{}{}
	}
	for field, aliases := range a.Aliases {
		if _, ok := known[field]; !ok {
			return fmt.Errorf("unknown canonical field %q", field)
		}
		for _, alias := range aliases {
			if NormalizeHeader(alias) == "" {
				return fmt.Errorf("field %q: blank alias", field)
			}
		}
	}
	if len(a.Aliases[FieldTicketID]) == 0 {
		return fmt.Errorf("field %q needs at least one alias", FieldTicketID)
	}
	if NormalizeHeader(a.Marker) == "" {
		return fmt.Errorf("header marker is blank")
	}
	return nil
}
