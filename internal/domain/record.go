package domain

import (
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 form used in sort keys and Data timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t in UTC with millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts both the millisecond layout and plain RFC 3339.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Type discriminators stored on every item.
const (
	TypeUser           = "user"
	TypePackage        = "package"
	TypeConsent        = "consent"
	TypePayment        = "payment"
	TypePaymentContext = "payment_temp_data"
	TypeProfileUpdate  = "payment_temp"
	TypeError          = "error"
)

// Fixed sort keys and prefixes of the single-table layout.
const (
	SKProfile        = "PROFILE"
	SKPaymentContext = "META#PAYMENTDATA#TEMP"
	SKProfileUpdate  = "META#PROFILEUPDATE#TEMP"

	PrefixPackage = "PKG#"
	PrefixConsent = "CONSENT#"
	PrefixPayment = "PAYMENT#"
	PrefixError   = "ERROR#"

	ErrorPartition = "ERROR-SPEECH-GEN"
)

// Key addresses one item in the table.
type Key struct {
	PK string `dynamodbav:"PK" json:"PK"`
	SK string `dynamodbav:"SK" json:"SK"`
}

func (k Key) String() string { return k.PK + "/" + k.SK }

// Item is the attribute set shared by every stored entity.
type Item struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Type      string `dynamodbav:"Type"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
	CreatedAt string `dynamodbav:"CreatedAt,omitempty"`
	UpdatedAt string `dynamodbav:"UpdatedAt,omitempty"`
}

// Header exposes the shared attributes so stores can stamp timestamps.
func (i *Item) Header() *Item { return i }

// ExpireAt sets the TTL attribute; DynamoDB removes the item after t.
func (i *Item) ExpireAt(t time.Time) { i.TTL = t.Unix() }

// Key returns the item's primary key.
func (i *Item) Key() Key { return Key{PK: i.PK, SK: i.SK} }

// Stamp defaults CreatedAt and refreshes UpdatedAt.
func (i *Item) Stamp(now time.Time) {
	ts := Timestamp(now)
	if i.CreatedAt == "" {
		i.CreatedAt = ts
	}
	i.UpdatedAt = ts
}

// Entity is anything a record store can put.
type Entity interface {
	Header() *Item
}

// Record pairs the shared attributes with a typed Data bag.
type Record[T any] struct {
	Item
	Data T `dynamodbav:"Data"`
}

// NewRecord builds a record for key with the given discriminator.
func NewRecord[T any](key Key, typ string, data T) *Record[T] {
	return &Record[T]{Item: Item{PK: key.PK, SK: key.SK, Type: typ}, Data: data}
}

func ProfileKey(userKey string) Key { return Key{PK: userKey, SK: SKProfile} }

func PaymentContextKey(userKey string) Key { return Key{PK: userKey, SK: SKPaymentContext} }

func ProfileUpdateKey(userKey string) Key { return Key{PK: userKey, SK: SKProfileUpdate} }

func ConsentKey(userKey, ts string) Key {
	return Key{PK: userKey, SK: PrefixConsent + ts}
}

func PackageKey(userKey string, productID ProductID, uniqueID, ts string) Key {
	return Key{PK: userKey, SK: PrefixPackage + strings.Join([]string{productID.String(), uniqueID, ts}, "#")}
}

func PaymentKey(userKey string, event EventName, productID ProductID, uniqueID, ts string) Key {
	return Key{PK: userKey, SK: PrefixPayment + strings.Join([]string{string(event), productID.String(), uniqueID, ts}, "#")}
}

// ErrorKey addresses a diagnostic record, e.g. ERROR#LEMON-WEBHOOK#<id>.
func ErrorKey(source, id string) Key {
	return Key{PK: ErrorPartition, SK: PrefixError + source + "#" + id}
}
