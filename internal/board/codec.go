package board

import (
	"encoding/json"
	"fmt"
)

func encodeThreadIDs(ids []ThreadID) ([]byte, error) {
	if ids == nil {
		ids = []ThreadID{}
	}
	return json.Marshal(ids)
}

func decodeThreadIDs(data []byte) ([]ThreadID, error) {
	var ids []ThreadID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		return nil, fmt.Errorf("cached catalog is null")
	}
	return ids, nil
}

func encodeThreadRecord(record ThreadRecord) ([]byte, error) {
	return json.Marshal(record)
}

func decodeThreadRecord(data []byte) (ThreadRecord, error) {
	var record ThreadRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return ThreadRecord{}, err
	}
	if record.URL == "" {
		return ThreadRecord{}, fmt.Errorf("cached thread has no url")
	}
	if (record.ImageURL == nil) != (record.ImageLocalPath == nil) {
		return ThreadRecord{}, fmt.Errorf("cached thread has a partial attachment")
	}
	return record, nil
}
