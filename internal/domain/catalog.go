package domain

import "strconv"

// ProductID is the payment provider's variant id.
type ProductID int64

func (id ProductID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseProductID parses the decimal form carried in webhook custom data.
func ParseProductID(s string) (ProductID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ProductID(n), nil
}

// ProductKind separates recurring subscriptions from one-time purchases.
type ProductKind string

const (
	KindSubscription ProductKind = "subscription"
	KindOneTime      ProductKind = "one_time"
	KindUnknown      ProductKind = "unknown"
)

// ValidityPeriod is the class used to compute a package's expiry.
type ValidityPeriod string

const (
	Validity2Hours    ValidityPeriod = "2hours"
	Validity24Hours   ValidityPeriod = "24hours"
	Validity1Month    ValidityPeriod = "1month"
	ValidityUnlimited ValidityPeriod = "unlimited"
)

// Product keys.
const (
	ProductFree       = "free"
	ProductOneMonth   = "1month"
	ProductTimeless20 = "timeless20"
	ProductTwoHours   = "2hours"
	ProductOneDay     = "24hours"
)

// FreeSpeechCount is the allowance granted by the free product.
const FreeSpeechCount = 2

// Product is one purchasable entitlement.
type Product struct {
	Key       string         `json:"key"`
	ID        ProductID      `json:"packageId"`
	Kind      ProductKind    `json:"type"`
	Validity  ValidityPeriod `json:"validityPeriod"`
	Allowance int            `json:"speechCount"`
}

// IsSubscription reports whether the product renews.
func (p Product) IsSubscription() bool { return p.Kind == KindSubscription }

// Products is the static catalog. The first entry is the fallback.
var Products = []Product{
	{Key: ProductFree, ID: -1, Kind: KindOneTime, Validity: ValidityUnlimited, Allowance: FreeSpeechCount},
	{Key: ProductOneMonth, ID: 1030016, Kind: KindSubscription, Validity: Validity1Month, Allowance: 400},
	{Key: ProductTimeless20, ID: 1030020, Kind: KindOneTime, Validity: ValidityUnlimited, Allowance: 20},
	{Key: ProductTwoHours, ID: 977951, Kind: KindOneTime, Validity: Validity2Hours, Allowance: 3},
	{Key: ProductOneDay, ID: 870513, Kind: KindOneTime, Validity: Validity24Hours, Allowance: 10},
}

// LookupProduct returns the product with id and whether it exists.
func LookupProduct(id ProductID) (Product, bool) {
	for _, p := range Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// ProductByID never fails: unknown ids resolve to the free product.
func ProductByID(id ProductID) Product {
	if p, ok := LookupProduct(id); ok {
		return p
	}
	return Products[0]
}

// ProductByKey never fails: unknown keys resolve to the free product.
func ProductByKey(key string) Product {
	for _, p := range Products {
		if p.Key == key {
			return p
		}
	}
	return Products[0]
}

// KindOf classifies id without the free fallback.
func KindOf(id ProductID) ProductKind {
	p, ok := LookupProduct(id)
	if !ok {
		return KindUnknown
	}
	return p.Kind
}

// Purchasable reports whether id can be sold through checkout.
func Purchasable(id ProductID) bool {
	p, ok := LookupProduct(id)
	return ok && p.Key != ProductFree
}
