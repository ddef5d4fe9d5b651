package model

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Kaguya154/dbmodel/types"
)

// mockConn 记录引擎发送的 SQL 与绑定值
type mockConn struct {
	mock.Mock
	kind types.DriverKind
}

func newMockConn(kind types.DriverKind) *mockConn {
	return &mockConn{kind: kind}
}

func (c *mockConn) Kind() types.DriverKind { return c.kind }

func (c *mockConn) Execute(_ context.Context, query string, args ...any) (int64, error) {
	ret := c.Called(query, args)
	return ret.Get(0).(int64), ret.Error(1)
}

func (c *mockConn) Fetch(_ context.Context, query string, args ...any) ([]*types.Record, error) {
	ret := c.Called(query, args)
	records, _ := ret.Get(0).([]*types.Record)
	return records, ret.Error(1)
}

func (c *mockConn) ExecuteBatch(_ context.Context, stmts []types.Statement) (int64, error) {
	ret := c.Called(stmts)
	return ret.Get(0).(int64), ret.Error(1)
}

func (c *mockConn) Begin(context.Context) (types.Tx, error) {
	return nil, errors.New("transactions are not mocked")
}

func (c *mockConn) Close() error { return nil }

// mockCache 用于模拟缓存故障
type mockCache struct {
	mock.Mock
}

func (c *mockCache) Get(_ context.Context, key string) ([]*types.Record, bool, error) {
	ret := c.Called(key)
	records, _ := ret.Get(0).([]*types.Record)
	return records, ret.Bool(1), ret.Error(2)
}

func (c *mockCache) Set(_ context.Context, key string, records []*types.Record) error {
	return c.Called(key, records).Error(0)
}

func (c *mockCache) Delete(_ context.Context, keys ...string) error {
	return c.Called(keys).Error(0)
}

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

const fixedStamp = "2024-01-02 03:04:05"

var fixedClock = types.ClockFunc(func() time.Time { return fixedNow })

func user(id int64) types.UserProvider {
	return types.UserFunc(func(context.Context) (int64, bool) { return id, true })
}

func row(kv ...any) *types.Record {
	r := types.NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}
