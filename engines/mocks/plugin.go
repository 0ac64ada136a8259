package mocks

import (
	"context"

	extismSDK "github.com/extism/go-sdk"
	"github.com/oteto/gonkey-playground/engines/extism/adapters"
	"github.com/stretchr/testify/mock"
)

// CompiledPlugin is a mock implementation of adapters.CompiledPlugin.
type CompiledPlugin struct {
	mock.Mock
}

func (m *CompiledPlugin) Instance(
	ctx context.Context,
	config extismSDK.PluginInstanceConfig,
) (adapters.PluginInstance, error) {
	args := m.Called(ctx, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(adapters.PluginInstance), args.Error(1)
}

func (m *CompiledPlugin) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// PluginInstance is a mock implementation of adapters.PluginInstance.
type PluginInstance struct {
	mock.Mock
}

func (m *PluginInstance) CallWithContext(
	ctx context.Context,
	name string,
	data []byte,
) (uint32, []byte, error) {
	args := m.Called(ctx, name, data)
	var out []byte
	if b, ok := args.Get(1).([]byte); ok {
		out = b
	}
	return uint32(args.Int(0)), out, args.Error(2)
}

func (m *PluginInstance) FunctionExists(name string) bool {
	args := m.Called(name)
	return args.Bool(0)
}

func (m *PluginInstance) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// InstanceWithExports returns a PluginInstance reporting each name as exported.
func InstanceWithExports(names ...string) *PluginInstance {
	instance := new(PluginInstance)
	for _, n := range names {
		instance.On("FunctionExists", n).Return(true)
	}
	return instance
}
