package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// run test command
// go test -v          								 	for all test
// go test -v -run=TestHelloWorld 			for individual func
// go test ./...												for all test in parent folder
func TestMain(m *testing.M) {
	//before
	fmt.Println("\nSTART UNIT TEST 'helper.go'")

	m.Run()

	//after
	fmt.Println("END UNIT TEST 'helper.go'")
}

func Test_StringInSlice(t *testing.T) {
	asserts := assert.New(t)
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}

	asserts.True(StringInSlice("a", keys))
	asserts.True(StringInSlice("g", keys))
	asserts.False(StringInSlice("gg", keys))
}

func Test_PairKey(t *testing.T) {
	asserts := assert.New(t)

	asserts.Equal(PairKey("alice", "bob"), PairKey("bob", "alice"))
	asserts.Equal("alice|bob", PairKey("bob", "alice"))
	asserts.NotEqual(PairKey("alice", "bob"), PairKey("alice", "carol"))
}

func Test_IsValidUid(t *testing.T) {
	asserts := assert.New(t)

	asserts.True(IsValidUid(GetRandomUUID()))
	asserts.False(IsValidUid("not-a-uuid"))
	asserts.False(IsValidUid(""))
}

func Test_IsValidName(t *testing.T) {
	asserts := assert.New(t)

	ok, err := IsValidName("my group")
	asserts.True(ok)
	asserts.Nil(err)

	ok, err = IsValidName("")
	asserts.False(ok)
	asserts.NotNil(err)
}

func Test_IsValidEmail(t *testing.T) {
	asserts := assert.New(t)

	asserts.True(IsValidEmail("someone@example.com"))
	asserts.False(IsValidEmail("someone@"))
}
