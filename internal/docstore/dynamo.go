package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Dynamo implements Store on a single DynamoDB table. The collection path is
// the partition key, the document key the sort key, and every item carries a
// numeric version attribute used for optimistic commit conditions.
type Dynamo struct {
	client  *dynamodb.Client
	table   string
	indexes map[string]string // orderable field -> GSI keyed (pk, field)
}

// NewDynamo returns a Dynamo store against the given table. indexes maps
// document fields that queries may order by onto GSI names; ordering by the
// document key needs no index.
func NewDynamo(client *dynamodb.Client, table string, indexes map[string]string) *Dynamo {
	if indexes == nil {
		indexes = map[string]string{}
	}
	return &Dynamo{client: client, table: table, indexes: indexes}
}

func (d *Dynamo) Get(ctx context.Context, col, key string) (Doc, error) {
	doc, _, err := d.getVersioned(ctx, col, key)
	return doc, err
}

func (d *Dynamo) getVersioned(ctx context.Context, col, key string) (Doc, int64, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            itemKey(col, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("docstore: get %s/%s: %w", col, key, err)
	}
	if out.Item == nil {
		return nil, 0, ErrDocMissing
	}
	doc, ver := decodeItem(out.Item)
	return doc, ver, nil
}

func (d *Dynamo) Query(ctx context.Context, q Query) ([]Doc, error) {
	docs, _, err := d.query(ctx, q)
	return docs, err
}

// query returns matching docs and their versions in result order.
func (d *Dynamo) query(ctx context.Context, q Query) ([]Doc, []int64, error) {
	names := map[string]string{"#pk": "pk"}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: q.Col},
	}
	keyCond := "#pk = :pk"
	var filterParts []string

	// Predicates on the ordering field ride the index sort key. A query may
	// carry at most one range condition per sort key, so a GTE/LT pair is
	// folded into an inclusive BETWEEN (timestamps are integral seconds).
	var gte, lt *Filter
	rest := make([]Filter, 0, len(q.Filters))
	for _, f := range q.Filters {
		f := f
		if q.OrderBy != "" && f.Field == q.OrderBy && f.Op == OpGTE && gte == nil {
			gte = &f
			continue
		}
		if q.OrderBy != "" && f.Field == q.OrderBy && f.Op == OpLT && lt == nil {
			lt = &f
			continue
		}
		rest = append(rest, f)
	}
	switch {
	case gte != nil && lt != nil:
		names["#sort"] = q.OrderBy
		values[":lo"] = encodeVal(gte.Value)
		values[":hi"] = numAttr(AsInt(lt.Value) - 1)
		keyCond += " AND #sort BETWEEN :lo AND :hi"
	case gte != nil:
		names["#sort"] = q.OrderBy
		values[":lo"] = encodeVal(gte.Value)
		keyCond += " AND #sort >= :lo"
	case lt != nil:
		names["#sort"] = q.OrderBy
		values[":hi"] = encodeVal(lt.Value)
		keyCond += " AND #sort < :hi"
	}

	for i, f := range rest {
		nk := fmt.Sprintf("#f%d", i)
		vk := fmt.Sprintf(":f%d", i)
		names[nk] = f.Field
		values[vk] = encodeVal(f.Value)

		var expr string
		switch f.Op {
		case OpEq:
			expr = fmt.Sprintf("%s = %s", nk, vk)
		case OpGTE:
			expr = fmt.Sprintf("%s >= %s", nk, vk)
		case OpLT:
			expr = fmt.Sprintf("%s < %s", nk, vk)
		case OpContains:
			expr = fmt.Sprintf("contains(%s, %s)", nk, vk)
		default:
			return nil, nil, fmt.Errorf("docstore: unsupported filter op %q", f.Op)
		}
		filterParts = append(filterParts, expr)
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(d.table),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(!q.Desc),
	}
	if len(filterParts) > 0 {
		in.FilterExpression = aws.String(strings.Join(filterParts, " AND "))
	}
	if q.OrderBy != "" {
		index, ok := d.indexes[q.OrderBy]
		if !ok {
			return nil, nil, fmt.Errorf("docstore: no index for order by %q", q.OrderBy)
		}
		in.IndexName = aws.String(index)
	}
	if q.StartAfter != "" {
		in.ExclusiveStartKey = itemKey(q.Col, q.StartAfter)
	}
	if q.Limit > 0 {
		in.Limit = aws.Int32(int32(q.Limit))
	}

	var docs []Doc
	var vers []int64
	paginator := dynamodb.NewQueryPaginator(d.client, in)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("docstore: query %s: %w", q.Col, err)
		}
		for _, raw := range page.Items {
			doc, ver := decodeItem(raw)
			docs = append(docs, doc)
			vers = append(vers, ver)
			if q.Limit > 0 && len(docs) == q.Limit {
				return docs, vers, nil
			}
		}
	}
	return docs, vers, nil
}

func (d *Dynamo) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < txAttempts; attempt++ {
		tx := &dynTx{store: d, ctx: ctx, reads: make(map[[2]string]int64)}
		if err := fn(tx); err != nil {
			return err
		}
		err := tx.commit(ctx)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
	}
	return ErrTxConflict
}

// --- transaction ------------------------------------------------------------

type dynTx struct {
	store *Dynamo
	ctx   context.Context
	reads map[[2]string]int64 // (col,key) -> version seen; 0 = absent
	ops   []memOp             // same staged-op shape as the memory store
}

func (t *dynTx) Get(col, key string) (Doc, error) {
	doc, ver, err := t.store.getVersioned(t.ctx, col, key)
	if errors.Is(err, ErrDocMissing) {
		t.reads[[2]string{col, key}] = 0
		return nil, ErrDocMissing
	}
	if err != nil {
		return nil, err
	}
	t.reads[[2]string{col, key}] = ver
	return doc, nil
}

func (t *dynTx) Query(q Query) ([]Doc, error) {
	docs, vers, err := t.store.query(t.ctx, q)
	if err != nil {
		return nil, err
	}
	for i, doc := range docs {
		t.reads[[2]string{q.Col, AsString(doc[KeyField])}] = vers[i]
	}
	return docs, nil
}

func (t *dynTx) Set(col, key string, doc Doc) {
	t.ops = append(t.ops, memOp{kind: opSet, col: col, key: key, doc: doc})
}

func (t *dynTx) Patch(col, key string, fields Doc) {
	t.ops = append(t.ops, memOp{kind: opPatch, col: col, key: key, doc: fields})
}

func (t *dynTx) Delete(col, key string) {
	t.ops = append(t.ops, memOp{kind: opDelete, col: col, key: key})
}

func (t *dynTx) Increment(col, key, field string, delta int64) {
	t.ops = append(t.ops, memOp{kind: opIncrement, col: col, key: key, field: field, delta: delta})
}

// commit folds the version of every read document into a condition on its own
// write when there is one, or a bare ConditionCheck otherwise, and applies all
// staged writes in one TransactWriteItems call.
func (t *dynTx) commit(ctx context.Context) error {
	written := make(map[[2]string]bool, len(t.ops))
	for _, op := range t.ops {
		written[[2]string{op.col, op.key}] = true
	}

	var items []types.TransactWriteItem

	for rk, seen := range t.reads {
		if written[rk] {
			continue
		}
		check := &types.ConditionCheck{
			TableName: aws.String(t.store.table),
			Key:       itemKey(rk[0], rk[1]),
		}
		if seen == 0 {
			check.ConditionExpression = aws.String("attribute_not_exists(pk)")
		} else {
			check.ConditionExpression = aws.String("#v = :expv")
			check.ExpressionAttributeNames = map[string]string{"#v": versionField}
			check.ExpressionAttributeValues = map[string]types.AttributeValue{
				":expv": numAttr(seen),
			}
		}
		items = append(items, types.TransactWriteItem{ConditionCheck: check})
	}

	for _, op := range t.ops {
		seen, read := t.reads[[2]string{op.col, op.key}]
		item, err := t.buildWrite(op, seen, read)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	_, err := t.store.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return err
}

func (t *dynTx) buildWrite(op memOp, seen int64, read bool) (types.TransactWriteItem, error) {
	switch op.kind {
	case opSet:
		item, err := encodeDoc(op.col, op.key, op.doc, seen+1)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		put := &types.Put{TableName: aws.String(t.store.table), Item: item}
		switch {
		case read && seen > 0:
			put.ConditionExpression = aws.String("#v = :expv")
			put.ExpressionAttributeNames = map[string]string{"#v": versionField}
			put.ExpressionAttributeValues = map[string]types.AttributeValue{":expv": numAttr(seen)}
		default:
			// Unread or read-absent: the key must still be free at commit.
			put.ConditionExpression = aws.String("attribute_not_exists(pk)")
		}
		return types.TransactWriteItem{Put: put}, nil

	case opPatch:
		names := map[string]string{"#v": versionField}
		values := map[string]types.AttributeValue{
			":one":  numAttr(1),
			":zero": numAttr(0),
		}
		expr := "SET #v = if_not_exists(#v, :zero) + :one"
		i := 0
		for k, v := range op.doc {
			nk := fmt.Sprintf("#p%d", i)
			vk := fmt.Sprintf(":p%d", i)
			names[nk] = k
			values[vk] = encodeVal(v)
			expr += fmt.Sprintf(", %s = %s", nk, vk)
			i++
		}
		upd := &types.Update{
			TableName:                 aws.String(t.store.table),
			Key:                       itemKey(op.col, op.key),
			UpdateExpression:          aws.String(expr),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}
		if read && seen > 0 {
			upd.ConditionExpression = aws.String("#v = :expv")
			values[":expv"] = numAttr(seen)
		} else if read {
			upd.ConditionExpression = aws.String("attribute_not_exists(pk)")
		}
		return types.TransactWriteItem{Update: upd}, nil

	case opDelete:
		del := &types.Delete{
			TableName: aws.String(t.store.table),
			Key:       itemKey(op.col, op.key),
		}
		if read && seen > 0 {
			del.ConditionExpression = aws.String("#v = :expv")
			del.ExpressionAttributeNames = map[string]string{"#v": versionField}
			del.ExpressionAttributeValues = map[string]types.AttributeValue{":expv": numAttr(seen)}
		}
		return types.TransactWriteItem{Delete: del}, nil

	case opIncrement:
		// ADD is commutative and carries no version condition, so it never
		// conflicts with unrelated writers. It does require the document to
		// exist: incrementing a vanished document cancels the transaction
		// rather than resurrecting a stub.
		return types.TransactWriteItem{Update: &types.Update{
			TableName:           aws.String(t.store.table),
			Key:                 itemKey(op.col, op.key),
			UpdateExpression:    aws.String("SET #v = #v + :one ADD #f :d"),
			ConditionExpression: aws.String("attribute_exists(pk)"),
			ExpressionAttributeNames: map[string]string{
				"#v": versionField,
				"#f": op.field,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":one": numAttr(1),
				":d":   numAttr(op.delta),
			},
		}}, nil
	}
	return types.TransactWriteItem{}, fmt.Errorf("docstore: unknown op kind %d", op.kind)
}

// isRetryable reports whether a TransactWriteItems failure means the optimistic
// snapshot went stale and the transaction function should be re-run.
func isRetryable(err error) bool {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if reason.Code == nil {
				continue
			}
			switch *reason.Code {
			case "ConditionalCheckFailed", "TransactionConflict":
				return true
			}
		}
		return false
	}
	var conflict *types.TransactionConflictException
	return errors.As(err, &conflict)
}

// --- encoding ---------------------------------------------------------------

func itemKey(col, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: col},
		"sk": &types.AttributeValueMemberS{Value: key},
	}
}

func numAttr(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func encodeDoc(col, key string, doc Doc, version int64) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(doc)+3)
	for k, v := range doc {
		if k == KeyField {
			continue
		}
		item[k] = encodeVal(v)
	}
	item["pk"] = &types.AttributeValueMemberS{Value: col}
	item["sk"] = &types.AttributeValueMemberS{Value: key}
	item[versionField] = numAttr(version)
	return item, nil
}

func encodeVal(v any) types.AttributeValue {
	switch x := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}
	case string:
		return &types.AttributeValueMemberS{Value: x}
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}
	case int:
		return numAttr(int64(x))
	case int64:
		return numAttr(x)
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(x, 'f', -1, 64)}
	case decimal.Decimal:
		return &types.AttributeValueMemberN{Value: x.String()}
	case []string:
		l := make([]types.AttributeValue, len(x))
		for i, s := range x {
			l[i] = &types.AttributeValueMemberS{Value: s}
		}
		return &types.AttributeValueMemberL{Value: l}
	case []Doc:
		l := make([]types.AttributeValue, len(x))
		for i, d := range x {
			m := make(map[string]types.AttributeValue, len(d))
			for k, fv := range d {
				m[k] = encodeVal(fv)
			}
			l[i] = &types.AttributeValueMemberM{Value: m}
		}
		return &types.AttributeValueMemberL{Value: l}
	case Doc:
		m := make(map[string]types.AttributeValue, len(x))
		for k, fv := range x {
			m[k] = encodeVal(fv)
		}
		return &types.AttributeValueMemberM{Value: m}
	default:
		return &types.AttributeValueMemberS{Value: fmt.Sprintf("%v", x)}
	}
}

func decodeItem(item map[string]types.AttributeValue) (Doc, int64) {
	doc := make(Doc, len(item))
	var ver int64
	for k, av := range item {
		switch k {
		case "pk":
			continue
		case "sk":
			doc[KeyField] = decodeVal(av)
		case versionField:
			ver = AsInt(decodeVal(av))
		default:
			doc[k] = decodeVal(av)
		}
	}
	return doc, ver
}

func decodeVal(av types.AttributeValue) any {
	switch x := av.(type) {
	case *types.AttributeValueMemberS:
		return x.Value
	case *types.AttributeValueMemberBOOL:
		return x.Value
	case *types.AttributeValueMemberN:
		d, err := decimal.NewFromString(x.Value)
		if err != nil {
			return int64(0)
		}
		return d
	case *types.AttributeValueMemberL:
		out := make([]any, len(x.Value))
		for i, e := range x.Value {
			out[i] = decodeVal(e)
		}
		return out
	case *types.AttributeValueMemberM:
		doc := make(Doc, len(x.Value))
		for k, e := range x.Value {
			doc[k] = decodeVal(e)
		}
		return doc
	case *types.AttributeValueMemberNULL:
		return nil
	}
	return nil
}
