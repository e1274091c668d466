package osrelease

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Parse Tests
// =============================================================================

const ubuntuOSRelease = `NAME="Ubuntu"
VERSION="20.04.6 LTS (Focal Fossa)"
ID=ubuntu
ID_LIKE=debian
PRETTY_NAME="Ubuntu 20.04.6 LTS"
VERSION_ID="20.04"
HOME_URL="https://www.ubuntu.com/"
VERSION_CODENAME=focal
UBUNTU_CODENAME=focal
`

func TestParse_Ubuntu(t *testing.T) {
	info := Parse(ubuntuOSRelease)

	assert.Equal(t, "ubuntu", info.ID)
	assert.Equal(t, "20.04", info.VersionID)
	assert.Equal(t, "Ubuntu 20.04.6 LTS", info.PrettyName)
}

func TestParse_SingleQuotedValues(t *testing.T) {
	info := Parse("ID='debian'\nVERSION_ID='12'\n")

	assert.Equal(t, "debian", info.ID)
	assert.Equal(t, "12", info.VersionID)
}

func TestParse_IgnoresMalformedLines(t *testing.T) {
	info := Parse("garbage line\n# comment\nID=ubuntu\n\n=orphan\n")

	assert.Equal(t, "ubuntu", info.ID)
	assert.Empty(t, info.VersionID)
}

func TestParse_CRLF(t *testing.T) {
	info := Parse("ID=ubuntu\r\nVERSION_ID=\"22.04\"\r\n")

	assert.Equal(t, "ubuntu", info.ID)
	assert.Equal(t, "22.04", info.VersionID)
}

func TestParse_Empty(t *testing.T) {
	info := Parse("")

	assert.Empty(t, info.ID)
	assert.Empty(t, info.VersionID)
	assert.Empty(t, info.PrettyName)
}

// =============================================================================
// Matches Tests
// =============================================================================

func TestMatches_CaseInsensitive(t *testing.T) {
	info := Info{ID: "ubuntu"}

	assert.True(t, info.Matches("ubuntu"))
	assert.True(t, info.Matches("Ubuntu"))
	assert.True(t, info.Matches("UBUNTU"))
}

func TestMatches_Substring(t *testing.T) {
	// Derivatives embed the parent ID.
	info := Info{ID: "ubuntu-core"}

	assert.True(t, info.Matches("ubuntu"))
}

func TestMatches_DifferentDistro(t *testing.T) {
	info := Info{ID: "centos"}

	assert.False(t, info.Matches("ubuntu"))
}

func TestMatches_EmptyID(t *testing.T) {
	assert.False(t, Info{}.Matches("ubuntu"))
}

func TestMatches_EmptyTarget(t *testing.T) {
	assert.False(t, Info{ID: "ubuntu"}.Matches(""))
}
