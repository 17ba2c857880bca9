package unreal_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uepipe/uepipe/pkg/patch"
	"github.com/uepipe/uepipe/pkg/unreal"
)

const targetFixture = `using UnrealBuildTool;

public class StoreUeSdkTestTarget : TargetRules
{
	public StoreUeSdkTestTarget(TargetInfo Target) : base(Target)
	{
		Type = TargetType.Game;
		DefaultBuildSettings = BuildSettingsVersion.V2;
		IncludeOrderVersion = EngineIncludeOrderVersion.Unreal5_1;
		ExtraModuleNames.Add("StoreUeSdkTest");
	}
}
`

const engineIniFixture = `[/Script/EngineSettings.GameMapsSettings]
GameDefaultMap=/Game/Maps/Demo.Demo
+ActiveGameNameRedirects=(OldGameName="TP_Blank",NewGameName="/Script/StoreUeSdkTest")

[/Script/AndroidPlatformEditor.AndroidSDKSettings]
SDKPath=(Path="C:/Users/Runner/AppData/Local/Android/Sdk")
NDKPath=(Path="C:/old/ndk")
JavaPath=(Path="C:/old/java")
SDKAPILevel=android-30
NDKAPILevel=android-19

[/Script/XsollaSettings.XsollaProjectSettings]
UsePlatformBrowser=False
`

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestChangeEngineVersion(t *testing.T) {
	dir := t.TempDir()
	project := unreal.Project{Dir: dir, Name: "StoreUeSdkTest"}
	write(t, project.UProject(), "{\n\t\"FileVersion\": 3,\n\t\"EngineAssociation\": \"5.2\"\n}\n")
	write(t, filepath.Join(dir, "Plugins", "XsollaSdk", "Xsolla.uplugin"), "{\n\t\"VersionName\": \"3.0\"\n}\n")

	require.NoError(t, unreal.ChangeEngineVersionForDemoProject(project, "5.4"))
	require.NoError(t, unreal.ChangeEngineVersionForPlugin(filepath.Join(dir, "Plugins", "XsollaSdk"), "Xsolla", "5.4"))

	raw, ok, err := patch.ReadJSONKey(project.UProject(), "EngineAssociation")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"5.4"`, string(raw))

	raw, ok, err = patch.ReadJSONKey(filepath.Join(dir, "Plugins", "XsollaSdk", "Xsolla.uplugin"), "EngineVersion")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"5.4"`, string(raw))
}

func TestUpdateTargetFiles(t *testing.T) {
	source := filepath.Join(t.TempDir(), "Source")
	game := filepath.Join(source, "StoreUeSdkTest.Target.cs")
	editor := filepath.Join(source, "StoreUeSdkTestEditor.Target.cs")
	write(t, game, targetFixture)
	write(t, editor, strings.ReplaceAll(targetFixture, "TargetType.Game", "TargetType.Editor"))
	write(t, filepath.Join(source, "StoreUeSdkTest", "StoreUeSdkTest.Build.cs"), "// untouched\n")

	files, err := unreal.UpdateTargetFiles(source, "5.4")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{game, editor}, files)

	data, err := os.ReadFile(game)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content,
		"\t\tDefaultBuildSettings = BuildSettingsVersion.V5; IncludeOrderVersion = EngineIncludeOrderVersion.Latest;\n")
	assert.NotContains(t, content, "Unreal5_1")
	assert.Equal(t, strings.Count(targetFixture, "\n")-1, strings.Count(content, "\n"))
}

func TestUpdateTargetFiles_Errors(t *testing.T) {
	source := t.TempDir()
	_, err := unreal.UpdateTargetFiles(source, "5.9")
	assert.True(t, errors.Is(err, unreal.ErrUnknownEngineVersion))

	_, err = unreal.UpdateTargetFiles(source, "5.4")
	assert.Error(t, err)

	write(t, filepath.Join(source, "Game.Target.cs"), "public class GameTarget {}\n")
	_, err = unreal.UpdateTargetFiles(source, "5.4")
	assert.True(t, errors.Is(err, patch.ErrNoMatch))
}

func TestUpdateDefaultEngineIni(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "Config")
	path := filepath.Join(configDir, "DefaultEngine.ini")
	write(t, path, engineIniFixture)

	require.NoError(t, unreal.UpdateDefaultEngineIni(configDir, "5.4"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "SDKAPILevel=android-33\n")
	assert.Contains(t, content, "NDKAPILevel=android-28\n")
	assert.Contains(t, content, `NDKPath=(Path="C:/Users/Runner/AppData/Local/Android/Sdk/ndk/25.1.8937393")`)
	assert.Contains(t, content, `JavaPath=(Path="C:/Program Files/Java/jdk-17")`)
	assert.Contains(t, content, `SDKPath=(Path="C:/Users/Runner/AppData/Local/Android/Sdk")`)
	assert.Contains(t, content, `+ActiveGameNameRedirects=(OldGameName="TP_Blank",NewGameName="/Script/StoreUeSdkTest")`)
	assert.NotContains(t, content, "android-30")
}

func TestUpdateDefaultEngineIni_AddsMissingSection(t *testing.T) {
	configDir := t.TempDir()
	path := filepath.Join(configDir, "DefaultEngine.ini")
	write(t, path, "[/Script/EngineSettings.GameMapsSettings]\nGameDefaultMap=/Game/Maps/Demo.Demo\n")

	require.NoError(t, unreal.UpdateDefaultEngineIni(configDir, "5.2"))

	value, err := patch.ReadINIValue(path, unreal.AndroidSDKSection, "NDKAPILevel")
	require.NoError(t, err)
	assert.Equal(t, "android-21", value)
}

func TestChangeBrowserSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Config", "DefaultEngine.ini")
	write(t, path, engineIniFixture)

	require.NoError(t, unreal.ChangeBrowserSettings(dir, "True"))

	value, err := patch.ReadINIValue(path, unreal.BrowserSection, unreal.BrowserOption)
	require.NoError(t, err)
	assert.Equal(t, "True", value)

	write(t, path, "[/Script/EngineSettings.GameMapsSettings]\nGameDefaultMap=/Game/Maps/Demo.Demo\n")
	err = unreal.ChangeBrowserSettings(dir, "True")
	assert.True(t, errors.Is(err, patch.ErrSectionNotFound))
}
