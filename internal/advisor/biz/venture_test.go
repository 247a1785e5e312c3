package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/advisor-x/pkg/errors"
)

// TestVentureService_CreateAndGet 测试创业项目的创建与工作区隔离
func TestVentureService_CreateAndGet(t *testing.T) {
	svc := NewVentureService(newTestFactory(t))
	ctx := context.Background()

	venture, err := svc.Create(ctx, "ws-1", &CreateVentureRequest{
		Name:    "Acme AI",
		Stage:   "seed",
		Summary: "developer tooling for ML teams",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, venture.ID)

	got, err := svc.Get(ctx, "ws-1", venture.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme AI", got.Name)

	// 其他工作区看不到
	_, err = svc.Get(ctx, "ws-2", venture.ID)
	assert.ErrorIs(t, err, errors.ErrVentureNotFound)
}

// TestVentureService_List 测试按工作区分页列举
func TestVentureService_List(t *testing.T) {
	svc := NewVentureService(newTestFactory(t))
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		_, err := svc.Create(ctx, "ws-1", &CreateVentureRequest{Name: name})
		require.NoError(t, err)
	}

	total, ventures, err := svc.List(ctx, "ws-1", 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, ventures, 2)
}
