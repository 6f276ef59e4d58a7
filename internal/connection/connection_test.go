package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintIgnoresTimestampAndID(t *testing.T) {
	a := Connection{
		ConnectionID:    "conn-a",
		SourceIP:        "1.1.1.1",
		DestinationIP:   "8.8.8.8",
		DestinationPort: 80,
		Protocol:        ProtocolTCP,
	}
	b := a
	b.ConnectionID = "conn-b"
	b.Timestamp = b.Timestamp.AddDate(0, 0, 1)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintDiffersOnCoreFields(t *testing.T) {
	base := Connection{SourceIP: "1.1.1.1", DestinationIP: "8.8.8.8", DestinationPort: 80, Protocol: ProtocolTCP}
	variants := []Connection{
		{SourceIP: "2.2.2.2", DestinationIP: "8.8.8.8", DestinationPort: 80, Protocol: ProtocolTCP},
		{SourceIP: "1.1.1.1", DestinationIP: "9.9.9.9", DestinationPort: 80, Protocol: ProtocolTCP},
		{SourceIP: "1.1.1.1", DestinationIP: "8.8.8.8", DestinationPort: 443, Protocol: ProtocolTCP},
		{SourceIP: "1.1.1.1", DestinationIP: "8.8.8.8", DestinationPort: 80, Protocol: ProtocolUDP},
	}
	for _, v := range variants {
		assert.NotEqual(t, base.Fingerprint(), v.Fingerprint())
	}
}

func TestPolicyMatchesEmptyConditions(t *testing.T) {
	p := Policy{PolicyID: "allow-all", Action: ActionAllow}
	c := Connection{SourceIP: "1.1.1.1", DestinationIP: "8.8.8.8", DestinationPort: 80, Protocol: ProtocolTCP}
	assert.True(t, p.Matches(c))
}

func TestPolicyMatchesConjunctiveConditions(t *testing.T) {
	p := Policy{
		PolicyID: "dual",
		Conditions: []PolicyCondition{
			{Field: FieldDestinationPort, Operator: "==", Value: 443},
			{Field: FieldProtocol, Operator: "==", Value: "TCP"},
		},
		Action: ActionBlock,
	}
	matching := Connection{SourceIP: "1.1.1.1", DestinationIP: "8.8.8.8", DestinationPort: 443, Protocol: ProtocolTCP}
	partial := Connection{SourceIP: "1.1.1.1", DestinationIP: "8.8.8.8", DestinationPort: 443, Protocol: ProtocolUDP}

	assert.True(t, p.Matches(matching))
	assert.False(t, p.Matches(partial))
}

func TestValidPolicyID(t *testing.T) {
	assert.True(t, ValidPolicyID("allow-80"))
	assert.True(t, ValidPolicyID("a"))
	assert.False(t, ValidPolicyID(""))
	assert.False(t, ValidPolicyID("has a space"))
	assert.False(t, ValidPolicyID("semi;colon"))
	assert.False(t, ValidPolicyID(string(make([]byte, 65))))
}

func TestNormalizeProtocol(t *testing.T) {
	p, err := NormalizeProtocol("tcp")
	require.NoError(t, err)
	assert.Equal(t, ProtocolTCP, p)

	_, err = NormalizeProtocol("icmp")
	assert.Error(t, err)
}

func TestNormalizeIP(t *testing.T) {
	ip, err := NormalizeIP("192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", ip)

	_, err = NormalizeIP("not-an-ip")
	assert.Error(t, err)
}

func TestValidatePortBoundaries(t *testing.T) {
	assert.NoError(t, ValidatePort(0))
	assert.NoError(t, ValidatePort(65535))
	assert.Error(t, ValidatePort(-1))
	assert.Error(t, ValidatePort(65536))
}

func TestNormalizeConditionValue(t *testing.T) {
	v, err := NormalizeConditionValue(FieldDestinationPort, float64(80))
	require.NoError(t, err)
	assert.Equal(t, 80, v)

	_, err = NormalizeConditionValue(FieldDestinationPort, float64(80.5))
	assert.Error(t, err)

	v, err = NormalizeConditionValue(FieldProtocol, "tcp")
	require.NoError(t, err)
	assert.Equal(t, "TCP", v)

	v, err = NormalizeConditionValue(FieldSourceIP, "1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1", v)
}
