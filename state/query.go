package state

import "sync"

// QueryResult is the shape every reactive query variant returns.
type QueryResult struct {
	Data      interface{}
	IsLoading bool
	Error     error
}

// Query is a reactive read against a PersistentStore's SQL rows. It
// re-executes when the version of any key in its read set advances or when
// Refetch is called explicitly; there is no mutation-broadcast trigger, so
// a write that bypasses the store's versions is not seen until one of those
// happens. Construct one with QueryValue, QueryOne or
// QueryMany; call Run to get the current result.
type Query struct {
	mu       sync.Mutex
	store    *PersistentStore
	sqlText  string
	params   []interface{}
	variant  string // "value", "one", "many"
	skip     bool
	readKeys []string
	lastVers map[string]uint64
	lastRes  QueryResult
	ran      bool
}

// NewQuery constructs a reactive query. readKeys declares the state keys
// this query depends on for version-based invalidation (§9 "versioned read
// sets") — the engine does not infer this from the SQL text.
func NewQuery(store *PersistentStore, sqlText string, params []interface{}, variant string, skip bool, readKeys []string) *Query {
	return &Query{
		store:    store,
		sqlText:  sqlText,
		params:   params,
		variant:  variant,
		skip:     skip,
		readKeys: readKeys,
		lastVers: make(map[string]uint64),
	}
}

// QueryValue builds a query returning the first column of the first row, or
// nil if there are no rows.
func QueryValue(store *PersistentStore, sqlText string, params []interface{}, readKeys ...string) *Query {
	return NewQuery(store, sqlText, params, "value", false, readKeys)
}

// QueryOne builds a query returning the first row as a structure, or nil.
func QueryOne(store *PersistentStore, sqlText string, params []interface{}, readKeys ...string) *Query {
	return NewQuery(store, sqlText, params, "one", false, readKeys)
}

// QueryMany builds a query returning every row in order.
func QueryMany(store *PersistentStore, sqlText string, params []interface{}, readKeys ...string) *Query {
	return NewQuery(store, sqlText, params, "many", false, readKeys)
}

// Skip marks the query to short-circuit to {data: nil, isLoading: false}
// without touching the database.
func (q *Query) Skip(skip bool) *Query {
	q.skip = skip
	return q
}

// stale reports whether any tracked key's version has advanced since the
// query's last execution.
func (q *Query) stale(snap *Snapshot) bool {
	if !q.ran {
		return true
	}
	for _, k := range q.readKeys {
		if snap.Version(k) != q.lastVers[k] {
			return true
		}
	}
	return false
}

// Run returns the current result, re-executing the underlying SQL only if
// the query is stale relative to snap (or has never run). Errors from the
// SQL layer are captured into Result.Error, never propagated to the caller.
func (q *Query) Run(snap *Snapshot) QueryResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.skip {
		return QueryResult{Data: nil, IsLoading: false}
	}
	if !q.stale(snap) {
		return q.lastRes
	}

	res := q.execute()
	q.lastRes = res
	q.ran = true
	for _, k := range q.readKeys {
		q.lastVers[k] = snap.Version(k)
	}
	return res
}

// Refetch forces re-execution regardless of staleness and does not itself
// bump any version.
func (q *Query) Refetch() QueryResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	res := q.execute()
	q.lastRes = res
	q.ran = true
	return res
}

func (q *Query) execute() QueryResult {
	rows, err := q.store.db.Query(q.sqlText, q.params...)
	if err != nil {
		return QueryResult{Error: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{Error: err}
	}

	var all [][]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{Error: err}
		}
		all = append(all, vals)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{Error: err}
	}

	switch q.variant {
	case "value":
		if len(all) == 0 {
			return QueryResult{Data: nil}
		}
		return QueryResult{Data: all[0][0]}
	case "one":
		if len(all) == 0 {
			return QueryResult{Data: nil}
		}
		return QueryResult{Data: rowToMap(cols, all[0])}
	default: // "many"
		rowsOut := make([]map[string]interface{}, len(all))
		for i, r := range all {
			rowsOut[i] = rowToMap(cols, r)
		}
		return QueryResult{Data: rowsOut}
	}
}

func rowToMap(cols []string, vals []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(cols))
	for i, c := range cols {
		m[c] = vals[i]
	}
	return m
}
