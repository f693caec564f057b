package scene

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	Name        string `json:"name"`        // Scene name
	DisplayName string `json:"displayName"` // Listing name
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin" or "file"
	FilePath    string `json:"filePath"`    // Path to scene file (file type only)
	Variant     string `json:"variant"`     // Variant name (optional)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse is the grouped scene listing
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

const (
	builtinGroup = "Built-in Scenes"
	fileGroup    = "Scene Files"
)

var sceneExtensions = []string{".yaml", ".yml", ".json"}

// scenesDir returns the first scenes directory that exists, or ""
func scenesDir() string {
	for _, path := range []string{"scenes", "../scenes"} {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	return ""
}

// ListSceneFiles scans dir for YAML and JSON scene files. An empty dir means
// the default scenes directory; a missing directory yields an empty list.
func ListSceneFiles(dir string) ([]SceneInfo, error) {
	if dir == "" {
		dir = scenesDir()
	}
	scenes := []SceneInfo{}
	if dir == "" {
		return scenes, nil
	}

	for _, ext := range sceneExtensions {
		files, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, fmt.Errorf("failed to scan scenes directory: %v", err)
		}
		for _, filePath := range files {
			sceneInfo, err := ParseSceneMetadata(filePath)
			if err != nil {
				log.Warn().Err(err).Str("file", filePath).Msg("failed to parse scene metadata")
				continue
			}
			scenes = append(scenes, sceneInfo)
		}
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})
	return scenes, nil
}

// ParseSceneMetadata extracts metadata from the header comments of a YAML
// scene file. JSON files have no comments and keep the filename defaults.
func ParseSceneMetadata(filePath string) (SceneInfo, error) {
	filename := filepath.Base(filePath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	sceneInfo := SceneInfo{
		ID:          fmt.Sprintf("file:%s", nameWithoutExt),
		Name:        titleCase(nameWithoutExt),
		DisplayName: titleCase(nameWithoutExt),
		Group:       fileGroup,
		Type:        "file",
		FilePath:    filePath,
	}

	file, err := os.Open(filePath)
	if err != nil {
		// Unreadable files keep the fallback values
		return sceneInfo, nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "---" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			break
		}
		if !strings.HasPrefix(line, "# ") {
			continue
		}

		content := strings.TrimPrefix(line, "# ")
		switch {
		case strings.HasPrefix(content, "Scene:"):
			sceneInfo.Name = strings.TrimSpace(strings.TrimPrefix(content, "Scene:"))
		case strings.HasPrefix(content, "Variant:"):
			sceneInfo.Variant = strings.TrimSpace(strings.TrimPrefix(content, "Variant:"))
		case strings.HasPrefix(content, "Description:"):
			sceneInfo.Description = strings.TrimSpace(strings.TrimPrefix(content, "Description:"))
		case strings.HasPrefix(content, "Group:"):
			sceneInfo.Group = strings.TrimSpace(strings.TrimPrefix(content, "Group:"))
		}
	}

	if sceneInfo.Name == "" {
		sceneInfo.Name = titleCase(nameWithoutExt)
	}
	if sceneInfo.Group == "" {
		sceneInfo.Group = fileGroup
	}
	if sceneInfo.Variant != "" {
		sceneInfo.DisplayName = fmt.Sprintf("%s - %s", sceneInfo.Name, sceneInfo.Variant)
	} else {
		sceneInfo.DisplayName = sceneInfo.Name
	}

	return sceneInfo, scanner.Err()
}

// ListAllScenes returns both built-in and file scenes, grouped by category.
// Built-in scenes come first, then the remaining groups alphabetically.
func ListAllScenes(dir string) (ScenesResponse, error) {
	var response ScenesResponse

	var allScenes []SceneInfo
	for _, id := range BuiltinIDs() {
		info := builtins[id].info
		info.ID = id
		info.DisplayName = info.Name
		info.Group = builtinGroup
		info.Type = "builtin"
		allScenes = append(allScenes, info)
	}

	fileScenes, err := ListSceneFiles(dir)
	if err != nil {
		return response, fmt.Errorf("failed to list scene files: %w", err)
	}
	allScenes = append(allScenes, fileScenes...)

	groupMap := make(map[string][]SceneInfo)
	for _, scene := range allScenes {
		groupMap[scene.Group] = append(groupMap[scene.Group], scene)
	}

	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtinGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	if group, exists := groupMap[builtinGroup]; exists {
		response.Groups = append(response.Groups, SceneGroup{Name: builtinGroup, Scenes: group})
	}
	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{Name: groupName, Scenes: groupMap[groupName]})
	}

	return response, nil
}

// titleCase converts a filename-style string to title case
// e.g., "lego-small" -> "Lego Small"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
