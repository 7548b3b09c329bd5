package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// StudentAnswersKey returns the cache key for a student's in-flight answer buffer.
func (r *CacheKeyStruct) StudentAnswersKey(examID, studentID string) string {
	return fmt.Sprintf("student:%s:exam:%s:answers", studentID, examID)
}

// StudentTimeSpentKey returns the cache key for a student's running time counter.
func (r *CacheKeyStruct) StudentTimeSpentKey(examID, studentID string) string {
	return fmt.Sprintf("student:%s:exam:%s:time_spent", studentID, examID)
}

// SettingKey returns the cache key for an application setting.
func (r *CacheKeyStruct) SettingKey(key string) string {
	return fmt.Sprintf("setting:%s", key)
}

// ExamSubmissionChannel returns the Redis PubSub channel for an exam's
// submission event stream.
func (r *CacheKeyStruct) ExamSubmissionChannel(examID string) string {
	return fmt.Sprintf("exam:%s:submissions", examID)
}

var CacheKey = NewCacheKeyStruct()
