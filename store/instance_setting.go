package store

import "context"

// InstanceSetting is a key/value row for instance-wide settings, currently
// only the schema version used by the migrator.
type InstanceSetting struct {
	Key   string
	Value string
}

// SettingKeySchemaVersion stores the applied schema version.
const SettingKeySchemaVersion = "schema-version"

func (s *Store) UpsertInstanceSetting(ctx context.Context, upsert *InstanceSetting) (*InstanceSetting, error) {
	setting, err := s.driver.UpsertInstanceSetting(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.instanceSettingCache.Set(setting.Key, setting)
	return setting, nil
}

func (s *Store) GetInstanceSetting(ctx context.Context, key string) (*InstanceSetting, error) {
	if cached, ok := s.instanceSettingCache.Get(key); ok {
		if setting, ok := cached.(*InstanceSetting); ok {
			return setting, nil
		}
	}
	setting, err := s.driver.GetInstanceSetting(ctx, key)
	if err != nil {
		return nil, err
	}
	if setting != nil {
		s.instanceSettingCache.Set(setting.Key, setting)
	}
	return setting, nil
}
