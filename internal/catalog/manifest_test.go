package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManifestAddNormalizes(t *testing.T) {
	m := NewManifest()
	m.Add(
		Descriptor{Controller: "PoolsHandler", Action: "GetAll", Method: "get"},
		Descriptor{Controller: " Users ", Action: "Create", Method: "POST"},
	)

	descs := m.Descriptors()
	require.Len(t, descs, 2)
	require.Equal(t, "Pools", descs[0].Controller)
	require.Equal(t, "GET", descs[0].Method)
	require.Equal(t, "Users", descs[1].Controller)
}

func TestManifestRejectsUnknownVerbsAndDuplicates(t *testing.T) {
	m := NewManifest()
	m.Add(
		Descriptor{Controller: "Pools", Action: "GetAll", Method: "GET"},
		Descriptor{Controller: "Pools", Action: "GetAll", Method: "GET"},
		Descriptor{Controller: "Pools", Action: "Options", Method: "OPTIONS"},
		Descriptor{Controller: "Pools", Action: "Head", Method: "HEAD"},
		Descriptor{Controller: "", Action: "GetAll", Method: "GET"},
		Descriptor{Controller: "Pools", Action: "", Method: "GET"},
	)
	require.Len(t, m.Descriptors(), 1)
}

func TestTrimHandlerSuffix(t *testing.T) {
	require.Equal(t, "Pools", TrimHandlerSuffix("PoolsHandler"))
	require.Equal(t, "Pools", TrimHandlerSuffix("Pools"))
	require.Equal(t, "Handler", TrimHandlerSuffix("Handler"))
}

func TestDescriptorIdentity(t *testing.T) {
	d := Descriptor{Controller: "Pools", Action: "GetAll", Method: "GET"}
	require.Equal(t, "Pools.GetAll.GET", d.Triple())
	require.Equal(t, "Pools.GetAll", d.PermissionName())
}
