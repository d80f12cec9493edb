package sync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScaleRawValueDividesByDecimals(t *testing.T) {
	v, err := scaleRawValue("10000000", 6)
	require.NoError(t, err)
	require.True(t, v.Equal(mustDecimal(t, "10")))
}

func TestScaleRawValueRejectsGarbage(t *testing.T) {
	_, err := scaleRawValue("not-a-number", 6)
	require.Error(t, err)
}

func TestParseInt64RejectsHex(t *testing.T) {
	_, err := parseInt64("0x1a")
	require.Error(t, err)
}

func TestNormalizeEVMItemSkipsWrongRecipient(t *testing.T) {
	item := EVMTransferItem{
		Hash: "0xabc", From: "0xfrom", To: "0xsomeoneelse",
		Value: "1000000", BlockNumber: "100", TimeStamp: "1700000000",
	}
	key := poolKeyForTest()
	t1, err := normalizeEVMItem(key, 6, "0xWALLET", item)
	require.NoError(t, err)
	require.Nil(t, t1)
}

func TestNormalizeEVMItemMatchesCaseInsensitively(t *testing.T) {
	item := EVMTransferItem{
		Hash: "0xabc", From: "0xfrom", To: "0xWALLET",
		Value: "2500000", BlockNumber: "100", TimeStamp: "1700000000",
	}
	key := poolKeyForTest()
	transfer, err := normalizeEVMItem(key, 6, "0xwallet", item)
	require.NoError(t, err)
	require.NotNil(t, transfer)
	require.True(t, transfer.Value.Equal(mustDecimal(t, "2.5")))
	require.Equal(t, int64(100), transfer.BlockNumber)
}
