package metadata

/** @brief Describes a type of job */
type JobType int

const (
	/** @brief A general job that does not have any specific thread requirements. */
	JOB_TYPE_GENERAL JobType = 0x02
	/** @brief A resource loading job, reading from disk. */
	JOB_TYPE_RESOURCE_LOAD JobType = 0x04
)

/**
 * @brief A unit of work for the job system. OnStart runs on a worker; OnComplete and OnFailure
 * run later on the thread calling JobSystem.Update, where GPU objects may be created.
 */
type JobTask struct {
	JobType     JobType
	InputParams interface{}
	/** @brief Required. Produces the job result. */
	OnStart func(params interface{}) (interface{}, error)
	/** @brief Optional. Receives the result of a successful start. */
	OnComplete func(result interface{})
	/** @brief Optional. Receives the error of a failed start. */
	OnFailure func(err error)
}
