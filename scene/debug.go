package scene

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将场景快照输出为 JSON，便于调试或对比导出结果。
func WriteDebugJSON(snap Snapshot, path string) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
