package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/xmlextract/internal/crypto"
	"github.com/TheMichaelB/xmlextract/internal/crypto/cryptotest"
)

const meterListing = `<MetersInOrder><Meter><MeterName>MC21</MeterName>` +
	`<ConsumptionType>Water</ConsumptionType><MeterNo>kitchen</MeterNo>` +
	`<SerialNo>12345678</SerialNo><VendorId>KAM</VendorId><ConfigNo>1</ConfigNo>` +
	`<TypeNo>021A0001</TypeNo><DEK>00112233445566778899AABBCCDDEEFF</DEK></Meter>` +
	`</MetersInOrder>`

// execute runs the CLI with fresh flag state and captured output.
func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	configFile, logLevel, logFormat = "", "", ""
	noColor, jsonOutput = true, false
	decryptOutput, decryptEncoding = "", ""
	importConfigDir, importDryRun, importOutput = "", false, ""
	importNoUppercase = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		setOutput(os.Stdout, os.Stderr)
	})

	code := run(append([]string{"--no-color"}, args...))
	return code, out.String(), errOut.String()
}

func writeDocument(t *testing.T, password string, plaintext []byte) string {
	t.Helper()
	return writeSealed(t, crypto.DeriveKey(password), plaintext)
}

func writeSealed(t *testing.T, key crypto.KeyMaterial, plaintext []byte) string {
	t.Helper()

	doc := cryptotest.Envelope(cryptotest.Seal(key.Bytes(), key.Bytes(), plaintext), 76)

	path := filepath.Join(t.TempDir(), "export.kem")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))
	return path
}

func TestRun_UsageWithoutArguments(t *testing.T) {
	code, out, errOut := execute(t)

	assert.Equal(t, 0, code)
	assert.Equal(t, usageLine+"\n", out)
	assert.Empty(t, errOut)
}

func TestRun_UsageWithOneArgument(t *testing.T) {
	code, out, _ := execute(t, "secret")

	assert.Equal(t, 0, code)
	assert.Equal(t, usageLine+"\n", out)
}

func TestRun_PrintsPlaintext(t *testing.T) {
	path := writeDocument(t, "test", []byte("HELLO, WORLD!!!!"))

	code, out, errOut := execute(t, "test", path)

	assert.Equal(t, 0, code, errOut)
	assert.Equal(t, "HELLO, WORLD!!!!\n", out)
}

func TestRun_EmptyPasswordDecrypts(t *testing.T) {
	path := writeSealed(t, crypto.KeyMaterial{}, []byte("HELLO, WORLD!!!!"))

	code, out, errOut := execute(t, "", path)

	assert.Equal(t, 0, code, errOut)
	assert.Equal(t, "HELLO, WORLD!!!!\n", out)
}

func TestRun_UsageIgnoresBrokenConfig(t *testing.T) {
	t.Setenv("XMLEXTRACT_LOG_LEVEL", "bogus")

	code, out, errOut := execute(t)
	assert.Equal(t, 0, code)
	assert.Equal(t, usageLine+"\n", out)
	assert.Empty(t, errOut)

	path := writeDocument(t, "test", []byte("HELLO, WORLD!!!!"))
	code, _, errOut = execute(t, "test", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "CONFIG_ERROR")
}

func TestRun_PasswordNamedLikeSubcommand(t *testing.T) {
	path := writeDocument(t, "import", []byte("HELLO, WORLD!!!!"))

	code, out, errOut := execute(t, "--", "import", path)

	assert.Equal(t, 0, code, errOut)
	assert.Equal(t, "HELLO, WORLD!!!!\n", out)
}

func TestRun_PasswordStartingWithDash(t *testing.T) {
	path := writeDocument(t, "-secret-", []byte("HELLO, WORLD!!!!"))

	code, out, errOut := execute(t, "--", "-secret-", path)

	assert.Equal(t, 0, code, errOut)
	assert.Equal(t, "HELLO, WORLD!!!!\n", out)
}

func TestRun_SavesOutput(t *testing.T) {
	path := writeDocument(t, "test", []byte("HELLO, WORLD!!!!"))
	saved := filepath.Join(t.TempDir(), "plain.xml")

	code, _, errOut := execute(t, "TEST", path, "--output", saved)
	require.Equal(t, 0, code, errOut)

	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "HELLO, WORLD!!!!", string(data))
}

func TestRun_MissingFile(t *testing.T) {
	code, out, errOut := execute(t, "test", filepath.Join(t.TempDir(), "absent.kem"))

	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "FILE_ACCESS_ERROR")
}

func TestRun_MarkerNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.xml")
	require.NoError(t, os.WriteFile(path, []byte("<root/>"), 0600))

	code, _, errOut := execute(t, "test", path)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "MARKER_NOT_FOUND")
}

func TestRun_JSONFailure(t *testing.T) {
	code, out, _ := execute(t, "--json", "test", filepath.Join(t.TempDir(), "absent.kem"))
	require.Equal(t, 1, code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "FILE_ACCESS_ERROR", got["code"])
}

func TestRun_UnknownEncoding(t *testing.T) {
	path := writeDocument(t, "test", []byte("HELLO, WORLD!!!!"))

	code, out, _ := execute(t, "test", path, "--encoding", "klingon")

	assert.Equal(t, 1, code)
	assert.Empty(t, out)
}

func TestImport_WritesMeterFiles(t *testing.T) {
	path := writeDocument(t, "CustomerId", cryptotest.PadZero(meterListing))
	root := t.TempDir()

	code, out, errOut := execute(t, "import", path, "CustomerId", "--useconfig", root)
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "Found meter MC21 (021A0001)")
	assert.Contains(t, out, "    driver : multical21")
	assert.Contains(t, errOut, "Creating target folder")
	assert.Contains(t, errOut, "Imported 1 meter file(s)")

	data, err := os.ReadFile(filepath.Join(root, "etc", "wmbusmeters.d", "12345678"))
	require.NoError(t, err)
	assert.Equal(t, "name=kitchen\ndriver=multical21\nid=12345678\nkey=00112233445566778899AABBCCDDEEFF\n", string(data))
}

func TestImport_DryRun(t *testing.T) {
	path := writeDocument(t, "CustomerId", cryptotest.PadZero(meterListing))
	root := t.TempDir()

	code, out, errOut := execute(t, "import", path, "CustomerId", "-c", root, "-n")
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "    serial : 12345678")
	assert.NotContains(t, out, "meter file:")
	assert.NoDirExists(t, filepath.Join(root, "etc"))
}

func TestImport_KeepsExistingFile(t *testing.T) {
	t.Setenv("XMLEXTRACT_IMPORT_ON_CONFLICT", "skip")

	path := writeDocument(t, "CustomerId", cryptotest.PadZero(meterListing))
	root := t.TempDir()
	existing := filepath.Join(root, "etc", "wmbusmeters.d", "12345678")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, os.WriteFile(existing, []byte("ORIGINAL\n"), 0644))

	code, out, errOut := execute(t, "import", path, "CustomerId", "-c", root)
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "(existing file kept)")
	assert.NotContains(t, errOut, "Creating target folder")
	assert.Contains(t, errOut, "Imported 0 meter file(s)")

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "ORIGINAL\n", string(data))
}

func TestImport_ConflictError(t *testing.T) {
	t.Setenv("XMLEXTRACT_IMPORT_ON_CONFLICT", "error")

	path := writeDocument(t, "CustomerId", cryptotest.PadZero(meterListing))
	root := t.TempDir()
	existing := filepath.Join(root, "etc", "wmbusmeters.d", "12345678")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, os.WriteFile(existing, []byte("ORIGINAL\n"), 0644))

	code, _, errOut := execute(t, "import", path, "CustomerId", "-c", root)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "STORAGE_ERROR")
}

func TestImport_NoUppercase(t *testing.T) {
	path := writeSealed(t, crypto.RawKey("CustomerId"), cryptotest.PadZero(meterListing))
	root := t.TempDir()

	code, _, _ := execute(t, "import", path, "CustomerId", "-c", root, "-n")
	require.Equal(t, 1, code)

	code, out, errOut := execute(t, "import", path, "CustomerId", "-c", root, "-n", "--no-uppercase")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "    serial : 12345678")
}

func TestImport_WrongPassword(t *testing.T) {
	path := writeDocument(t, "CustomerId", cryptotest.PadZero(meterListing))

	code, _, errOut := execute(t, "import", path, "Guess", "-c", t.TempDir())

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "DECRYPTION_ERROR")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xmlextract.yaml")

	code, _, errOut := execute(t, "config", "init", path)

	require.Equal(t, 0, code, errOut)
	assert.FileExists(t, path)
}
