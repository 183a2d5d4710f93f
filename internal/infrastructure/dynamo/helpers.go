package dynamo

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// compositeKey builds the DynamoDB primary key of k.
func compositeKey(k domain.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: k.PK},
		attrSK: &types.AttributeValueMemberS{Value: k.SK},
	}
}

// expired reports whether item carries a TTL at or before now. DynamoDB
// removes expired items lazily, so reads must filter them.
func expired(item map[string]types.AttributeValue, now time.Time) bool {
	n, ok := item[attrTTL].(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	sec, err := strconv.ParseInt(n.Value, 10, 64)
	return err == nil && sec > 0 && sec <= now.Unix()
}

// updateExpr is a rendered domain.Update.
type updateExpr struct {
	Expr      string
	Condition string
	Names     map[string]string
	Values    map[string]types.AttributeValue
}

// exprBuilder hands out stable placeholders: one #nX per attribute name and
// one :vX per value, in the order they are first seen.
type exprBuilder struct {
	names  map[string]string
	values map[string]types.AttributeValue
	byName map[string]string
	nv     int
}

func newExprBuilder() *exprBuilder {
	return &exprBuilder{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
		byName: make(map[string]string),
	}
}

func (b *exprBuilder) path(segments []string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		ph, ok := b.byName[s]
		if !ok {
			ph = fmt.Sprintf("#n%d", len(b.byName))
			b.byName[s] = ph
			b.names[ph] = s
		}
		parts[i] = ph
	}
	return strings.Join(parts, ".")
}

func (b *exprBuilder) value(v any) (string, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", err
	}
	ph := fmt.Sprintf(":v%d", b.nv)
	b.nv++
	b.values[ph] = av
	return ph, nil
}

// buildUpdateExpr renders u as a SET expression plus condition. UpdatedAt is
// always refreshed.
func buildUpdateExpr(u *domain.Update, now time.Time) (*updateExpr, error) {
	if u == nil || u.Empty() {
		return nil, fmt.Errorf("no fields to update")
	}
	b := newExprBuilder()
	var sets []string
	for _, a := range u.Actions() {
		segs := a.Field.Path()
		if len(segs) == 0 {
			return nil, fmt.Errorf("unknown field %d", a.Field)
		}
		p := b.path(segs)
		switch a.Op {
		case domain.OpSet:
			v, err := b.value(a.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal field %s: %w", a.Field, err)
			}
			sets = append(sets, fmt.Sprintf("%s = %s", p, v))
		case domain.OpSetIfAbsent:
			v, err := b.value(a.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal field %s: %w", a.Field, err)
			}
			sets = append(sets, fmt.Sprintf("%s = if_not_exists(%s, %s)", p, p, v))
		case domain.OpAppend:
			empty, _ := b.value([]any{})
			v, err := b.value(a.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal field %s: %w", a.Field, err)
			}
			sets = append(sets, fmt.Sprintf("%s = list_append(if_not_exists(%s, %s), %s)", p, p, empty, v))
		case domain.OpAdd:
			zero, _ := b.value(0)
			v, err := b.value(a.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal field %s: %w", a.Field, err)
			}
			sets = append(sets, fmt.Sprintf("%s = if_not_exists(%s, %s) + %s", p, p, zero, v))
		default:
			return nil, fmt.Errorf("unsupported op %d on %s", a.Op, a.Field)
		}
	}
	ts, _ := b.value(domain.Timestamp(now))
	sets = append(sets, fmt.Sprintf("%s = %s", b.path([]string{attrUpdatedAt}), ts))

	var conds []string
	for _, c := range u.Conditions() {
		switch c.Op {
		case domain.CondItemExists:
			conds = append(conds, fmt.Sprintf("attribute_exists(%s)", b.path([]string{attrPK})))
		case domain.CondGreaterThan:
			v, _ := b.value(c.Value)
			conds = append(conds, fmt.Sprintf("%s > %s", b.path(c.Field.Path()), v))
		}
	}

	return &updateExpr{
		Expr:      "SET " + strings.Join(sets, ", "),
		Condition: strings.Join(conds, " AND "),
		Names:     b.names,
		Values:    b.values,
	}, nil
}
