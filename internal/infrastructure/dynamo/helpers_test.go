package dynamo

import (
	"strconv"
	"testing"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 8, 8, 10, 0, 0, 0, time.UTC)

func TestBuildUpdateExpr_NestedSet(t *testing.T) {
	ue, err := buildUpdateExpr(domain.NewUpdate().Set(domain.FieldPackageStatus, domain.StatusActive), now)
	require.NoError(t, err)
	assert.Equal(t, "SET #n0.#n1 = :v0, #n2 = :v1", ue.Expr)
	assert.Equal(t, map[string]string{"#n0": "Data", "#n1": "packageStatus", "#n2": "UpdatedAt"}, ue.Names)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "ACTIVE"}, ue.Values[":v0"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2025-08-08T10:00:00.000Z"}, ue.Values[":v1"])
	assert.Empty(t, ue.Condition)
}

func TestBuildUpdateExpr_SharedSegmentsReusePlaceholders(t *testing.T) {
	u := domain.NewUpdate().
		Set(domain.FieldPackageStatus, domain.StatusFailed).
		Set(domain.FieldSpeechCount, 3).
		RequireExists()
	ue, err := buildUpdateExpr(u, now)
	require.NoError(t, err)
	assert.Equal(t, "SET #n0.#n1 = :v0, #n0.#n2 = :v1, #n3 = :v2", ue.Expr)
	assert.Equal(t, "attribute_exists(#n4)", ue.Condition)
	assert.Equal(t, "PK", ue.Names["#n4"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, ue.Values[":v1"])
}

func TestBuildUpdateExpr_ErrorLogShape(t *testing.T) {
	u := domain.NewUpdate().
		Set(domain.FieldType, domain.TypeError).
		SetIfAbsent(domain.FieldCreatedAt, "2025-08-08T10:00:00.000Z").
		Append(domain.FieldData, []map[string]string{{"error-time-x": "{}"}})
	ue, err := buildUpdateExpr(u, now)
	require.NoError(t, err)
	assert.Equal(t,
		"SET #n0 = :v0, #n1 = if_not_exists(#n1, :v1), #n2 = list_append(if_not_exists(#n2, :v2), :v3), #n3 = :v4",
		ue.Expr)
	empty, ok := ue.Values[":v2"].(*types.AttributeValueMemberL)
	require.True(t, ok)
	assert.Empty(t, empty.Value)
	appended, ok := ue.Values[":v3"].(*types.AttributeValueMemberL)
	require.True(t, ok)
	assert.Len(t, appended.Value, 1)
}

func TestBuildUpdateExpr_ConditionalDecrement(t *testing.T) {
	u := domain.NewUpdate().Add(domain.FieldSpeechCount, -1).RequireGreaterThan(domain.FieldSpeechCount, 0)
	ue, err := buildUpdateExpr(u, now)
	require.NoError(t, err)
	assert.Equal(t, "SET #n0.#n1 = if_not_exists(#n0.#n1, :v0) + :v1, #n2 = :v2", ue.Expr)
	assert.Equal(t, "#n0.#n1 > :v3", ue.Condition)
}

func TestBuildUpdateExpr_Deterministic(t *testing.T) {
	u := domain.GrantUpdate(domain.ProductByKey(domain.ProductOneMonth), "sub_1", domain.StatusPending,
		domain.Window{Start: now, Expiry: now.AddDate(0, 1, 0)},
		domain.PackageRef{PK: "u", SK: "PKG#1", Timestamp: "t"})
	ue1, err := buildUpdateExpr(u, now)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(u, now)
	require.NoError(t, err)
	assert.Equal(t, ue1.Expr, ue2.Expr)
	assert.Equal(t, ue1.Names, ue2.Names)
}

func TestBuildUpdateExpr_Empty_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(domain.NewUpdate(), now)
	assert.ErrorContains(t, err, "no fields to update")
}

func TestExpired(t *testing.T) {
	ttl := func(v string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{attrTTL: &types.AttributeValueMemberN{Value: v}}
	}
	assert.False(t, expired(map[string]types.AttributeValue{}, now), "no TTL")
	assert.False(t, expired(ttl("0"), now), "zero TTL")
	assert.False(t, expired(ttl(strconv.FormatInt(now.Add(time.Minute).Unix(), 10)), now))
	assert.True(t, expired(ttl(strconv.FormatInt(now.Unix(), 10)), now))
	assert.True(t, expired(ttl(strconv.FormatInt(now.Add(-time.Hour).Unix(), 10)), now))
}
