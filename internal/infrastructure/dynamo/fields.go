package dynamo

// Top-level attribute names of the single-table layout.
const (
	attrPK        = "PK"
	attrSK        = "SK"
	attrTTL       = "TTL"
	attrUpdatedAt = "UpdatedAt"
)
