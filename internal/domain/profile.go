package domain

// PackageStatus is the state of a user's active package.
type PackageStatus string

const (
	StatusPending  PackageStatus = "PENDING"
	StatusActive   PackageStatus = "ACTIVE"
	StatusExpired  PackageStatus = "EXPIRED"
	StatusCanceled PackageStatus = "CANCELED"
	StatusFailed   PackageStatus = "FAILED"
	StatusError    PackageStatus = "ERROR"
	StatusUnknown  PackageStatus = "UNKNOWN"
)

// Valid reports whether s is one of the state-machine values.
func (s PackageStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired, StatusCanceled, StatusFailed, StatusError, StatusUnknown:
		return true
	}
	return false
}

// PackageRef points a profile at the package record that granted it.
type PackageRef struct {
	PK        string `dynamodbav:"PK" json:"PK"`
	SK        string `dynamodbav:"SK" json:"SK"`
	Timestamp string `dynamodbav:"timestamp" json:"timestamp"`
}

// UserProfile is the Data bag of the PROFILE item.
type UserProfile struct {
	UserID           string        `dynamodbav:"userID" json:"userID"`
	AuthProvider     string        `dynamodbav:"authProvider" json:"authProvider"`
	Name             string        `dynamodbav:"name" json:"name"`
	SpeechCount      int           `dynamodbav:"speechCount" json:"speechCount"`
	PackageType      string        `dynamodbav:"packageType" json:"packageType"`
	PackageID        string        `dynamodbav:"package" json:"package"`
	PackageUniqueID  string        `dynamodbav:"package_unique_id" json:"package_unique_id"`
	PackageStatus    PackageStatus `dynamodbav:"packageStatus" json:"packageStatus"`
	PackageStarted   string        `dynamodbav:"packageStarted" json:"packageStarted"`
	PackageExpire    string        `dynamodbav:"packageExpire" json:"packageExpire"`
	ActivePackageRef PackageRef    `dynamodbav:"activePackageRef" json:"activePackageRef"`
}

// ConsentData is the Data bag of a CONSENT# item.
type ConsentData struct {
	AgreedToTerms         bool   `dynamodbav:"agreedToTerms" json:"agreedToTerms"`
	TermsConditionVersion string `dynamodbav:"termsConditionVersion" json:"termsConditionVersion"`
	PrivacyPolicyVersion  string `dynamodbav:"privacyPolicyVersion" json:"privacyPolicyVersion"`
	Timestamp             string `dynamodbav:"timestamp" json:"timestamp"`
}

// PackageData is the Data bag of a PKG# item.
type PackageData struct {
	Timestamp          string         `dynamodbav:"timestamp" json:"timestamp"`
	PackageID          string         `dynamodbav:"package" json:"package"`
	PaymentInfo        map[string]any `dynamodbav:"paymentInfo" json:"paymentInfo"`
	PackageUniqueID    string         `dynamodbav:"package_unique_id" json:"package_unique_id"`
	PackageStartedTime string         `dynamodbav:"packageStartedTime" json:"packageStartedTime"`
	PackageExpireTime  string         `dynamodbav:"packageExpireTime" json:"packageExpireTime"`
}

// PaymentData is the Data bag of a PAYMENT# item.
type PaymentData struct {
	Timestamp       string         `dynamodbav:"timestamp" json:"timestamp"`
	PackageID       string         `dynamodbav:"package" json:"package"`
	PaymentInfo     map[string]any `dynamodbav:"paymentInfo" json:"paymentInfo"`
	PackageStatus   PackageStatus  `dynamodbav:"packageStatus" json:"packageStatus"`
	PackageUniqueID string         `dynamodbav:"package_unique_id" json:"package_unique_id"`
}

// ProfileUpdateIntent is the Data bag of META#PROFILEUPDATE#TEMP: a status
// change that arrived before the profile existed.
type ProfileUpdateIntent struct {
	Timestamp     string         `dynamodbav:"timestamp" json:"timestamp"`
	PackageID     string         `dynamodbav:"package" json:"package"`
	PaymentInfo   map[string]any `dynamodbav:"paymentInfo" json:"paymentInfo"`
	PackageStatus PackageStatus  `dynamodbav:"packageStatus" json:"packageStatus"`
}

// CheckoutUser is the identity and consent captured when checkout starts.
type CheckoutUser struct {
	Sub                   string    `dynamodbav:"sub" json:"sub"`
	Email                 string    `dynamodbav:"email" json:"email"`
	Name                  string    `dynamodbav:"name" json:"name"`
	AuthProvider          string    `dynamodbav:"authProvider" json:"authProvider"`
	ProductID             ProductID `dynamodbav:"productId" json:"productId"`
	AgreedToTerms         bool      `dynamodbav:"agreedToTerms" json:"agreedToTerms"`
	TermsConditionVersion string    `dynamodbav:"termsConditionVersion" json:"termsConditionVersion"`
	PrivacyPolicyVersion  string    `dynamodbav:"privacyPolicyVersion" json:"privacyPolicyVersion"`
}

// PaymentContext is the Data bag of META#PAYMENTDATA#TEMP.
type PaymentContext struct {
	UserData CheckoutUser `dynamodbav:"userData" json:"userData"`
}

// Identity is a verified caller of the authenticated routes.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}
