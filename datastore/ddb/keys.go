/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// KeyLayout holds the key templates of the table. {database}, {collection}
// and {id} are replaced when a key is built.
type KeyLayout struct {
	PK string
	SK string
}

// DefaultKeyLayout puts each collection in its own partition, one item per
// document identity.
var DefaultKeyLayout = KeyLayout{
	PK: "{database}#COLLECTION#{collection}",
	SK: "ID#{id}",
}

// Attribute names of a stored item.
const (
	attrPK         = "PK"
	attrSK         = "SK"
	attrEntityType = "EntityType"
	attrSeq        = "Seq"
	attrDocument   = "Document"
)

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros fills every {name} of template from values. Unknown macros
// expand to the empty string.
func expandMacros(template string, values map[string]string) string {
	return macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
		return values[strings.Trim(macro, "{}")]
	})
}

func (l KeyLayout) partition(database, collection string) string {
	return expandMacros(l.PK, map[string]string{"database": database, "collection": collection})
}

func (l KeyLayout) sort(database, collection, id string) string {
	return expandMacros(l.SK, map[string]string{"database": database, "collection": collection, "id": id})
}

// validate rejects layouts that cannot tell collections or documents apart.
func (l KeyLayout) validate() error {
	if !strings.Contains(l.PK, "{collection}") {
		return fmt.Errorf("partition key template %q lacks {collection}", l.PK)
	}
	if !strings.Contains(l.SK, "{id}") {
		return fmt.Errorf("sort key template %q lacks {id}", l.SK)
	}
	return nil
}

func buildKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: pk},
		attrSK: &types.AttributeValueMemberS{Value: sk},
	}
}
