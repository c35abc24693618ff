package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/compiler"
	"github.com/svmpay/bpfasm/op"
	"github.com/svmpay/bpfasm/program"
	"github.com/svmpay/bpfasm/syscalls"
)

type memoryStore struct {
	objects map[string][]byte
	inputs  []*s3.PutObjectInput
	fail    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	m.inputs = append(m.inputs, in)
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryStore) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	meta := program.Metadata{
		Name:     "fee-check",
		Version:  "1.2.0",
		Type:     program.Validator,
		Networks: []syscalls.Network{syscalls.Solana},
	}
	result := compiler.Compile([]bytecode.Instruction{
		bytecode.LoadImm(op.R0, 0),
		bytecode.Exit(),
	}, nil)
	b, err := New(meta, result, 2)
	require.NoError(t, err)
	return b
}

func TestNewBundle(t *testing.T) {
	b := testBundle(t)
	require.Equal(t, FormatVersion, b.Format)
	require.Len(t, b.ID, 36)
	require.Len(t, b.Bytecode, 16)
	require.Equal(t, Checksum(b.Bytecode), b.Checksum)
	require.Equal(t, "fee-check", b.Metadata().Name)
	require.NoError(t, b.Verify())

	other := testBundle(t)
	require.NotEqual(t, b.ID, other.ID)
}

func TestNewBundleRejectsFailure(t *testing.T) {
	_, err := New(program.Metadata{Name: "x"}, compiler.Compile(nil, nil), 0)
	require.Error(t, err)
	_, err = New(program.Metadata{Name: "x"}, nil, 0)
	require.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	b := testBundle(t)
	data, err := Marshal(b)
	require.NoError(t, err)

	again, err := Marshal(b)
	require.NoError(t, err)
	require.Equal(t, data, again)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	require.True(t, b.CreatedAt.Equal(decoded.CreatedAt))
	decoded.CreatedAt = b.CreatedAt
	require.Equal(t, b, decoded)
	require.NoError(t, decoded.Verify())

	_, err = Unmarshal([]byte{0xff, 0x00})
	require.Error(t, err)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	b := testBundle(t)
	b.Bytecode = b.Bytecode[:len(b.Bytecode)-1]
	require.ErrorContains(t, b.Verify(), "checksum mismatch")

	b.Checksum = Checksum(b.Bytecode)
	require.ErrorContains(t, b.Verify(), "invalid bytecode")

	b = testBundle(t)
	b.Format = 99
	require.ErrorContains(t, b.Verify(), "unsupported bundle format")

	b = testBundle(t)
	b.ID = "not-a-uuid"
	require.ErrorContains(t, b.Verify(), "invalid build id")
}

func TestPublishAndFetch(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	p := NewPublisher(store, "builds", WithPrefix("programs"))
	b := testBundle(t)

	key, err := p.Publish(ctx, b)
	require.NoError(t, err)
	require.Equal(t, "programs/fee-check/1.2.0/"+b.ID+".cbor", key)
	require.Len(t, store.inputs, 1)
	require.Equal(t, ContentType, aws.ToString(store.inputs[0].ContentType))
	require.Equal(t, b.Checksum, store.inputs[0].Metadata["checksum"])

	fetched, err := p.Fetch(ctx, key)
	require.NoError(t, err)
	require.Equal(t, b.ID, fetched.ID)
	require.Equal(t, b.Bytecode, fetched.Bytecode)

	_, err = p.Fetch(ctx, "programs/missing.cbor")
	require.ErrorContains(t, err, "NoSuchKey")
}

func TestPublishError(t *testing.T) {
	store := newMemoryStore()
	store.fail = errors.New("access denied")
	p := NewPublisher(store, "builds")
	b := testBundle(t)
	b.Version = ""
	require.Equal(t, "fee-check/unversioned/"+b.ID+".cbor", p.Key(b))
	_, err := p.Publish(context.Background(), b)
	require.ErrorContains(t, err, "access denied")
}
